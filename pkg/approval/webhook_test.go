package approval_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kairoslabs/agentcore/pkg/approval"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

// deliveredPayload captures what the gate posted to the "target" service,
// so the test can play the role of that remote service signing a callback.
type deliveredPayload struct {
	Token       string `json:"token"`
	CallbackURL string `json:"callback_url"`
}

func TestWebhookGate_ApprovedRoundTrip(t *testing.T) {
	signingKey := []byte("test-signing-key-0123456789abcd")

	var captured deliveredPayload
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer target.Close()

	gate, router := approval.NewWebhookGate(target.URL, "http://callback.example", signingKey, time.Second)
	callbackSrv := httptest.NewServer(router)
	defer callbackSrv.Close()

	resultCh := make(chan approval.Decision, 1)
	go func() {
		d, err := gate.Request(t.Context(), "deploy to prod?", map[string]any{"env": "prod"})
		require.NoError(t, err)
		resultCh <- d
	}()

	require.Eventually(t, func() bool { return captured.Token != "" }, time.Second, time.Millisecond)

	parsed, err := jwt.Parse([]byte(captured.Token), jwt.WithKey(jwa.HS256, signingKey), jwt.WithValidate(true))
	require.NoError(t, err)
	id := parsed.Subject()

	callbackToken, err := jwt.NewBuilder().
		Subject(id).
		Claim("decision", "approved").
		Claim("reason", "reviewed by on-call").
		Expiration(time.Now().Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(callbackToken, jwt.WithKey(jwa.HS256, signingKey))
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"token": string(signed)})
	resp, err := http.Post(callbackSrv.URL+"/approvals/"+id, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	d := <-resultCh
	require.Equal(t, approval.Approved, d.Outcome)
	require.Equal(t, "reviewed by on-call", d.Reason)
}

func TestWebhookGate_CallbackWithBadSignatureRejectedByServer(t *testing.T) {
	signingKey := []byte("test-signing-key-0123456789abcd")
	wrongKey := []byte("wrong-signing-key-abcdef01234567")

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer target.Close()

	gate, router := approval.NewWebhookGate(target.URL, "http://callback.example", signingKey, 50*time.Millisecond)
	_ = gate
	callbackSrv := httptest.NewServer(router)
	defer callbackSrv.Close()

	tok, err := jwt.NewBuilder().Subject("some-id").Claim("decision", "approved").Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, wrongKey))
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"token": string(signed)})
	resp, err := http.Post(callbackSrv.URL+"/approvals/some-id", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
