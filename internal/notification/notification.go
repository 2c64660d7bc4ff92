package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBudgetAlert     Kind = "budget_alert"
	KindExpenseApproved Kind = "expense_approved"
	KindExpenseRejected Kind = "expense_rejected"
)

type Recipient struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Message is the unit handed from a Sender to the delivery side.
type Message struct {
	ID        string                 `json:"id"`
	Kind      Kind                   `json:"kind"`
	Recipient Recipient              `json:"recipient"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

func NewMessage(recipient Recipient, kind Kind, payload map[string]interface{}) Message {
	return Message{
		ID:        uuid.New().String(),
		Kind:      kind,
		Recipient: recipient,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("unmarshal notification: %w", err)
	}
	if m.Recipient.Email == "" {
		return Message{}, fmt.Errorf("notification %s has no recipient email", m.ID)
	}
	return m, nil
}

// Sender accepts a notification for delivery. Implementations must not block on the mail transport.
type Sender interface {
	Send(ctx context.Context, recipient Recipient, kind Kind, payload map[string]interface{}) error
}

// Mailer delivers a rendered notification.
type Mailer interface {
	Deliver(ctx context.Context, to Recipient, subject, htmlBody string) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, recipient Recipient, kind Kind, payload map[string]interface{}) error {
	s.logger.InfoContext(ctx, "notification",
		"kind", kind,
		"user_id", recipient.UserID,
		"email", recipient.Email,
		"payload", payload)
	return nil
}

type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Deliver(ctx context.Context, to Recipient, subject, htmlBody string) error {
	m.logger.InfoContext(ctx, "mail delivered",
		"to", to.Email,
		"subject", subject,
		"bytes", len(htmlBody))
	return nil
}

// Deliverer renders a message and hands it to the mailer.
type Deliverer struct {
	renderer *Renderer
	mailer   Mailer
	logger   *slog.Logger
}

func NewDeliverer(renderer *Renderer, mailer Mailer, logger *slog.Logger) *Deliverer {
	return &Deliverer{renderer: renderer, mailer: mailer, logger: logger}
}

func (d *Deliverer) Deliver(ctx context.Context, msg Message) error {
	subject, body, err := d.renderer.Render(msg)
	if err != nil {
		return fmt.Errorf("render %s: %w", msg.Kind, err)
	}
	if err := d.mailer.Deliver(ctx, msg.Recipient, subject, body); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", msg.Kind, msg.Recipient.Email, err)
	}
	d.logger.Debug("notification delivered", "message_id", msg.ID, "kind", msg.Kind, "user_id", msg.Recipient.UserID)
	return nil
}
