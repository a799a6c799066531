// Package notify sends the outbound email the workflows trigger.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugh/go-stockroom/pkg/config"
	"gopkg.in/gomail.v2"
)

// Invite describes a pending team invite.
type Invite struct {
	TeamNum int
	Inviter string
	Invitee string
}

type Sender interface {
	SendInvite(ctx context.Context, invite Invite) error
}

// Mailer delivers over SMTP. Without an SMTP host it only logs what it would
// have sent.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

func NewMailer(cfg config.SMTPConfig, logger *slog.Logger) *Mailer {
	m := &Mailer{from: cfg.From, logger: logger}
	if cfg.Enabled() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return m
}

func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

func (m *Mailer) SendInvite(ctx context.Context, invite Invite) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := m.ComposeInvite(invite)
	if m.dialer == nil {
		m.logger.Info("smtp not configured, invite email not sent",
			"to", invite.Invitee,
			"team_num", invite.TeamNum,
		)
		return nil
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send invite to %s: %w", invite.Invitee, err)
	}
	return nil
}

func (m *Mailer) ComposeInvite(invite Invite) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", invite.Invitee)
	msg.SetHeader("Subject", fmt.Sprintf("%s invited you to their team", invite.Inviter))
	msg.SetBody("text/plain", fmt.Sprintf(
		"%s invited you to join team #%d.\n\nSign in and open the Team page to accept or reject the invite.\n",
		invite.Inviter, invite.TeamNum,
	))
	return msg
}
