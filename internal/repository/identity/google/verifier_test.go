package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhosh101066/sync-player/internal/repository/identity"
)

func newTestVerifier(t *testing.T, clientId string, handler http.HandlerFunc) *verifier {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &verifier{
		httpClient: &http.Client{Timeout: time.Second},
		endpoint:   server.URL,
		clientId:   clientId,
	}
}

func TestVerify(t *testing.T) {
	v := newTestVerifier(t, "client-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("id_token"))
		w.Write([]byte(`{"sub":"sub-1","email":"alice@example.com","name":"alice","picture":"https://p/1","aud":"client-1"}`))
	})

	claim, err := v.Verify(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", claim.Subject)
	assert.Equal(t, "alice@example.com", claim.Email)
	assert.Equal(t, "alice", claim.Name)
	require.NotNil(t, claim.AvatarURL)
	assert.Equal(t, "https://p/1", *claim.AvatarURL)
}

func TestVerifyRejectedToken(t *testing.T) {
	v := newTestVerifier(t, "client-1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
	})

	_, err := v.Verify(context.Background(), "bad")
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerifyWrongAudience(t *testing.T) {
	v := newTestVerifier(t, "client-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sub":"sub-1","aud":"someone-else"}`))
	})

	_, err := v.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerifyMissingSubject(t *testing.T) {
	v := newTestVerifier(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"alice@example.com"}`))
	})

	_, err := v.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerifyWithoutPicture(t *testing.T) {
	v := newTestVerifier(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sub":"sub-1","email":"a@b.c","name":"a"}`))
	})

	claim, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, claim.AvatarURL)
}
