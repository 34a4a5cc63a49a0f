package remoteagent

import (
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresName(t *testing.T) {
	_, err := New(Config{URL: "http://localhost:9000"})
	require.Error(t, err)
}

func TestNew_RequiresACardSource(t *testing.T) {
	_, err := New(Config{Name: "remote_helper"})
	require.Error(t, err)
}

func TestNew_DerivesAgentCardURLFromURL(t *testing.T) {
	r, err := New(Config{Name: "remote_helper", URL: "http://localhost:9000/"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/.well-known/agent.json", r.cfg.AgentCardURL)
}

func TestExtractText_PrefersFinalAgentMessageThenArtifacts(t *testing.T) {
	task := &a2a.Task{
		History: []*a2a.Message{
			a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "question"}),
			a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "answer"}),
		},
		Artifacts: []*a2a.Artifact{
			{Parts: []a2a.Part{a2a.TextPart{Text: "artifact text"}}},
		},
	}

	text := extractText(task)
	require.Equal(t, "answer\nartifact text", text)
}

func TestExtractText_NilTaskReturnsEmpty(t *testing.T) {
	require.Equal(t, "", extractText(nil))
}
