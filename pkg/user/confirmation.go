package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/projtrack/tracker/internal/mail"
	log "github.com/sirupsen/logrus"
)

// ConfirmationSender mails confirmation links for new accounts and resend
// requests.
type ConfirmationSender struct {
	tokens *Tokens
	mailer mail.Mailer
	host   string
}

func NewConfirmationSender(tokens *Tokens, mailer mail.Mailer, host string) *ConfirmationSender {
	return &ConfirmationSender{tokens: tokens, mailer: mailer, host: strings.TrimSuffix(host, "/")}
}

// Subscribe sends the emails in response to user events on bus. A failed
// delivery fails the publish.
func (c *ConfirmationSender) Subscribe(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.UserRegisteredType, func(e event_bus.EventT[event_bus.UserRegistered]) error {
		return c.sendRegistered(e.Context(), e.Data)
	})
	event_bus.SubscribeTyped(bus, event_bus.ConfirmationRequestedType, func(e event_bus.EventT[event_bus.ConfirmationRequested]) error {
		return c.sendResend(e.Context(), e.Data)
	})
}

func (c *ConfirmationSender) link(email string) (string, error) {
	token, err := c.tokens.Issue(email)
	if err != nil {
		return "", err
	}
	return c.host + "/confirm/" + token, nil
}

func (c *ConfirmationSender) sendRegistered(ctx context.Context, e event_bus.UserRegistered) error {
	link, err := c.link(e.Email)
	if err != nil {
		return err
	}
	log.Debugf("Sending confirmation email to user %d", e.UserId)
	return c.mailer.Send(ctx, mail.Message{
		To:      e.Email,
		Subject: "Confirm your Project Activity Tracker account",
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Your account on the Project Activity Tracker has been created with role: %s.\n"+
			"Please confirm your email address by clicking the link below:\n\n"+
			"%s\n\n"+
			"If you did not create this account, you can ignore this email.\n\n"+
			"This is an automated message.", e.Username, e.Role, link),
	})
}

func (c *ConfirmationSender) sendResend(ctx context.Context, e event_bus.ConfirmationRequested) error {
	link, err := c.link(e.Email)
	if err != nil {
		return err
	}
	log.Debugf("Resending confirmation email to user %d", e.UserId)
	return c.mailer.Send(ctx, mail.Message{
		To:      e.Email,
		Subject: "Resend: confirm your Project Activity Tracker account",
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Here is a new confirmation link for your Project Activity Tracker account:\n\n"+
			"%s\n\n"+
			"If you did not request this, you can ignore this email.\n\n"+
			"This is an automated message.", e.Username, link),
	})
}
