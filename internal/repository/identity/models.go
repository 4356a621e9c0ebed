package identity

import "errors"

// ErrInvalidToken marks a token the external verifier rejected.
var ErrInvalidToken = errors.New("invalid identity token")

// Claim is a verified external identity assertion. Subject is the only field
// the hub relies on for identity; the rest is display profile.
type Claim struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL *string
}
