package controller

import (
	"fmt"
	"time"
)

// generateTimeBasedId is good enough for correlating log lines; it is never
// used as an identity.
func (c *controller) generateTimeBasedId() string {
	return fmt.Sprintf("%x", time.Now().UnixNano())
}
