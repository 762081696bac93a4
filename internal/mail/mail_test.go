package mail

import (
	"context"
	"testing"

	"github.com/projtrack/tracker/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	complete := config.SMTP{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Pass: "secret"}

	assert.IsType(t, &SMTPMailer{}, New(complete))
	assert.IsType(t, &NoopMailer{}, New(config.SMTP{Host: "smtp.example.com", Port: 587}))
}

func TestNoopMailer_Send(t *testing.T) {
	err := New(config.SMTP{}).Send(context.Background(), Message{To: "someone@example.com", Subject: "hi"})

	assert.NoError(t, err)
}
