package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/hugh/go-stockroom/internal/testutil"
	"github.com/hugh/go-stockroom/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_ComposeInvite(t *testing.T) {
	m := NewMailer(config.SMTPConfig{From: "no-reply@stockroom.local"}, testutil.DiscardLogger())

	msg := m.ComposeInvite(Invite{TeamNum: 7, Inviter: "alice@example.com", Invitee: "bob@example.com"})

	assert.Equal(t, []string{"no-reply@stockroom.local"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"bob@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"alice@example.com invited you to their team"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "team #7")
}

func TestMailer_DisabledOnlyLogs(t *testing.T) {
	m := NewMailer(config.SMTPConfig{}, testutil.DiscardLogger())
	assert.False(t, m.Enabled())

	err := m.SendInvite(context.Background(), Invite{TeamNum: 1, Inviter: "a@example.com", Invitee: "b@example.com"})
	assert.NoError(t, err)
}

func TestMailer_CancelledContext(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "smtp.invalid", Port: 25}, testutil.DiscardLogger())
	assert.True(t, m.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.SendInvite(ctx, Invite{Invitee: "b@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
