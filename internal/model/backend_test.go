package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
)

func stubRegistry(p Provider) *Registry {
	r := NewRegistry()
	r.RegisterFactory("stub", func(string, string) Provider { return p })
	return r
}

func TestBackendAvailability(t *testing.T) {
	stub := &stubProvider{reply: "ok"}

	assert.True(t, NewBackend(stubRegistry(stub), "general", "stub", "m", "key", "").Available())
	assert.False(t, NewBackend(stubRegistry(stub), "general", "stub", "m", "  ", "").Available())
	assert.False(t, NewBackend(stubRegistry(stub), "general", "unknown", "m", "key", "").Available())

	var nilBackend *Backend
	assert.False(t, nilBackend.Available())
}

func TestBackendGenerateReplyBuildsSystemPrompt(t *testing.T) {
	stub := &stubProvider{reply: "  Proceed with caution.  "}
	b := NewBackend(stubRegistry(stub), "general", "stub", "gpt-test", "key", "")

	reply, err := b.GenerateReply(context.Background(), ReplyRequest{
		UserID:    "u1",
		History:   []Message{{Role: RoleUser, Content: "anything I should know"}},
		Knowledge: []string{"Suspect vehicle is blue."},
		Directive: "Threat level is high.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Proceed with caution.", reply)

	require.Len(t, stub.seen, 1)
	assert.Equal(t, "gpt-test", stub.seen[0].Model)
	assert.Equal(t, "Threat level is high.\n\nReference material:\n- Suspect vehicle is blue.", stub.seen[0].SystemPrompt)
	assert.Equal(t, "u1", stub.seen[0].User)
	assert.Equal(t, FormatText, stub.seen[0].Format)
	assert.InDelta(t, 0.3, stub.seen[0].Temperature, 1e-9)
}

func TestBackendGenerateReplyJSONIsDeterministic(t *testing.T) {
	stub := &stubProvider{reply: `{"label":"general_query"}`}
	b := NewBackend(stubRegistry(stub), "classifier", "stub", "m", "key", "")

	_, err := b.GenerateReply(context.Background(), ReplyRequest{
		History: []Message{{Role: RoleUser, Content: "hello"}},
		Format:  FormatJSON,
	})
	require.NoError(t, err)
	require.Len(t, stub.seen, 1)
	assert.Equal(t, FormatJSON, stub.seen[0].Format)
	assert.Zero(t, stub.seen[0].Temperature)
}

func TestBackendGenerateReplyErrors(t *testing.T) {
	unconfigured := NewBackend(stubRegistry(&stubProvider{}), "legal", "stub", "m", "", "")
	_, err := unconfigured.GenerateReply(context.Background(), ReplyRequest{})
	assert.ErrorIs(t, err, faults.ErrConfiguration)

	failing := NewBackend(stubRegistry(&stubProvider{err: errors.New("boom")}), "legal", "stub", "m", "key", "")
	_, err = failing.GenerateReply(context.Background(), ReplyRequest{History: []Message{{Role: RoleUser, Content: "x"}}})
	assert.EqualError(t, err, "legal backend: boom")

	empty := NewBackend(stubRegistry(&stubProvider{reply: " "}), "legal", "stub", "m", "key", "")
	_, err = empty.GenerateReply(context.Background(), ReplyRequest{History: []Message{{Role: RoleUser, Content: "x"}}})
	assert.EqualError(t, err, "legal backend returned empty reply")
}
