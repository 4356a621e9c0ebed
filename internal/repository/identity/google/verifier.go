package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/santhosh101066/sync-player/internal/repository/identity"
)

const defaultEndpoint = "https://oauth2.googleapis.com/tokeninfo"

// verifier checks a Google ID token against the tokeninfo endpoint. Signature
// verification happens on Google's side; the hub only consumes the resulting
// claim.
type verifier struct {
	httpClient *http.Client
	endpoint   string
	clientId   string
}

func NewVerifier(clientId string) *verifier {
	return &verifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   defaultEndpoint,
		clientId:   clientId,
	}
}

type tokenInfo struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Audience string `json:"aud"`
}

func (v *verifier) Verify(ctx context.Context, token string) (identity.Claim, error) {
	endpoint := v.endpoint + "?id_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return identity.Claim{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return identity.Claim{}, fmt.Errorf("failed to call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return identity.Claim{}, identity.ErrInvalidToken
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return identity.Claim{}, fmt.Errorf("failed to decode tokeninfo: %w", err)
	}

	if info.Subject == "" {
		return identity.Claim{}, identity.ErrInvalidToken
	}
	if v.clientId != "" && info.Audience != v.clientId {
		return identity.Claim{}, identity.ErrInvalidToken
	}

	claim := identity.Claim{
		Subject: info.Subject,
		Email:   info.Email,
		Name:    info.Name,
	}
	if info.Picture != "" {
		picture := info.Picture
		claim.AvatarURL = &picture
	}

	return claim, nil
}
