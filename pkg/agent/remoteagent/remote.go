// Package remoteagent implements a sub-agent that delegates over the A2A
// (Agent-to-Agent) protocol instead of running an in-process Driver: it
// satisfies agent.Agent by round-tripping a task through a remote A2A
// server and extracting the resulting text (spec §4.4 — a remote agent
// crosses the same task-string/answer-string boundary as a local one).
package remoteagent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
)

// Config configures one remote A2A sub-agent.
type Config struct {
	// Name is the local name this agent is registered under.
	Name string

	// URL is the base URL of the remote A2A server; its agent card is
	// resolved from "<URL>/.well-known/agent.json" unless AgentCard or
	// AgentCardURL override it.
	URL string

	// AgentCard, if set, skips card resolution entirely.
	AgentCard *a2a.AgentCard

	// AgentCardURL overrides the default well-known path.
	AgentCardURL string

	// Timeout bounds both card resolution and the message round trip.
	// Default: 30s.
	Timeout time.Duration
}

// Remote is an agent.Agent backed by a remote A2A server.
type Remote struct {
	cfg  Config
	card *a2a.AgentCard
}

// New builds a Remote. The agent card is resolved lazily on first
// Execute so construction never makes a network call.
func New(cfg Config) (*Remote, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("remoteagent: name is required")
	}
	if cfg.URL == "" && cfg.AgentCard == nil && cfg.AgentCardURL == "" {
		return nil, fmt.Errorf("remoteagent: one of URL, AgentCard or AgentCardURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.URL != "" && cfg.AgentCardURL == "" && cfg.AgentCard == nil {
		cfg.AgentCardURL = strings.TrimSuffix(cfg.URL, "/") + "/.well-known/agent.json"
	}
	return &Remote{cfg: cfg, card: cfg.AgentCard}, nil
}

// Name satisfies agent.Agent.
func (r *Remote) Name() string { return r.cfg.Name }

// Execute sends task as a single user message to the remote agent and
// returns the text extracted from the resulting task's final agent
// message and any artifacts (spec §4.4).
func (r *Remote) Execute(ctx context.Context, task string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	card, err := r.resolveCard(ctx)
	if err != nil {
		return "", fmt.Errorf("remoteagent %q: resolving agent card: %w", r.cfg.Name, err)
	}

	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return "", fmt.Errorf("remoteagent %q: creating client: %w", r.cfg.Name, err)
	}
	defer func() { _ = client.Destroy() }()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: task})
	result, err := client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return "", fmt.Errorf("remoteagent %q: sending message: %w", r.cfg.Name, err)
	}

	taskInfo := result.TaskInfo()
	if taskInfo.TaskID == "" {
		return "", fmt.Errorf("remoteagent %q: response carried no task id", r.cfg.Name)
	}

	remoteTask, err := client.GetTask(ctx, &a2a.TaskQueryParams{ID: taskInfo.TaskID})
	if err != nil {
		return "", fmt.Errorf("remoteagent %q: fetching task: %w", r.cfg.Name, err)
	}

	return extractText(remoteTask), nil
}

func (r *Remote) resolveCard(ctx context.Context) (*a2a.AgentCard, error) {
	if r.card != nil {
		return r.card, nil
	}
	card, err := agentcard.DefaultResolver.Resolve(ctx, r.cfg.AgentCardURL)
	if err != nil {
		return nil, err
	}
	r.card = card
	return card, nil
}

// extractText gathers text from the task's final agent message and from
// any artifacts, in that order, joined by newlines.
func extractText(task *a2a.Task) string {
	if task == nil {
		return ""
	}

	var texts []string
	for i := len(task.History) - 1; i >= 0; i-- {
		msg := task.History[i]
		if msg == nil || msg.Role != a2a.MessageRoleAgent {
			continue
		}
		for _, part := range msg.Parts {
			if tp, ok := part.(a2a.TextPart); ok {
				texts = append(texts, tp.Text)
			}
		}
		break
	}
	for _, artifact := range task.Artifacts {
		for _, part := range artifact.Parts {
			if tp, ok := part.(a2a.TextPart); ok {
				texts = append(texts, tp.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}
