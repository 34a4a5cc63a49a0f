package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// WebhookGate delivers approval requests to an external service over
// HTTP and waits for a signed callback, matching the "webhook" delivery
// mechanism named in spec §6. The callback is authenticated with a
// JWT (lestrrat-go/jwx) so a third party cannot forge approvals.
type WebhookGate struct {
	httpClient  *http.Client
	targetURL   string
	signingKey  []byte
	callbackURL string
	timeout     time.Duration

	mu      sync.Mutex
	pending map[string]chan Decision
}

// NewWebhookGate builds a gate that POSTs requests to targetURL and
// expects callbacks on the router it returns, mounted at
// POST /approvals/{id} under callbackURL.
func NewWebhookGate(targetURL, callbackURL string, signingKey []byte, timeout time.Duration) (*WebhookGate, chi.Router) {
	g := &WebhookGate{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		targetURL:   targetURL,
		signingKey:  signingKey,
		callbackURL: callbackURL,
		timeout:     timeout,
		pending:     make(map[string]chan Decision),
	}

	r := chi.NewRouter()
	r.Post("/approvals/{id}", g.handleCallback)
	return g, r
}

type webhookPayload struct {
	Token       string `json:"token"`
	CallbackURL string `json:"callback_url"`
}

type callbackBody struct {
	Token string `json:"token"`
}

func (g *WebhookGate) Request(ctx context.Context, prompt string, args map[string]any) (Decision, error) {
	id := uuid.NewString()
	ch := make(chan Decision, 1)

	g.mu.Lock()
	g.pending[id] = ch
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return Decision{}, fmt.Errorf("approval: encoding args: %w", err)
	}

	token, err := jwt.NewBuilder().
		Subject(id).
		Claim("prompt", prompt).
		Claim("args", string(argsJSON)).
		Expiration(time.Now().Add(g.timeout)).
		Build()
	if err != nil {
		return Decision{}, fmt.Errorf("approval: building token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, g.signingKey))
	if err != nil {
		return Decision{}, fmt.Errorf("approval: signing token: %w", err)
	}

	body, _ := json.Marshal(webhookPayload{
		Token:       string(signed),
		CallbackURL: fmt.Sprintf("%s/approvals/%s", g.callbackURL, id),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.targetURL, bytes.NewReader(body))
	if err != nil {
		return Decision{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Decision{Outcome: Rejected, Reason: "webhook delivery failed: " + err.Error()}, nil
	}
	resp.Body.Close()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case d := <-ch:
		return d, nil
	case <-timer.C:
		return Decision{Outcome: TimedOut, Reason: "no callback within timeout"}, nil
	case <-ctx.Done():
		return Decision{Outcome: TimedOut, Reason: "context cancelled"}, nil
	}
}

func (g *WebhookGate) handleCallback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	g.mu.Lock()
	ch, ok := g.pending[id]
	g.mu.Unlock()
	if !ok {
		http.Error(w, "unknown or expired approval id", http.StatusNotFound)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	var cb callbackBody
	if err := json.Unmarshal(raw, &cb); err != nil {
		http.Error(w, "invalid callback body", http.StatusBadRequest)
		return
	}

	parsed, err := jwt.Parse([]byte(cb.Token), jwt.WithKey(jwa.HS256, g.signingKey), jwt.WithValidate(true))
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	if parsed.Subject() != id {
		http.Error(w, "token does not match approval id", http.StatusUnauthorized)
		return
	}

	decisionClaim, _ := parsed.Get("decision")
	reasonClaim, _ := parsed.Get("reason")
	reason, _ := reasonClaim.(string)

	var outcome Outcome
	switch decisionClaim {
	case "approved":
		outcome = Approved
	default:
		outcome = Rejected
	}

	select {
	case ch <- Decision{Outcome: outcome, Reason: reason}:
	default:
	}
	w.WriteHeader(http.StatusNoContent)
}
