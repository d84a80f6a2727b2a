package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"rollcall/internal/queue"
)

// Message is one outbound email.
type Message struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	From    string   `json:"from"`
	To      []string `json:"to"`
}

// Mailer is any backend that can deliver a message. Delivery confirmation is
// not part of the contract.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// QueueMailer publishes messages for the worker to deliver instead of
// sending inline.
type QueueMailer struct {
	q queue.Queue
}

var _ Mailer = (*QueueMailer)(nil)

// NewQueueMailer creates a mailer backed by the dispatch queue.
func NewQueueMailer(q queue.Queue) *QueueMailer {
	return &QueueMailer{q: q}
}

// Send enqueues the message.
func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return m.q.Publish(ctx, queue.Message{Type: "email", Body: body})
}

// Decode unpacks a queued email payload.
func Decode(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// OTPNotifier adapts a Mailer into the check-in flow's fire-and-forget
// contract: send errors are logged, never returned.
type OTPNotifier struct {
	M    Mailer
	From string
}

// SendOTP dispatches the code to a single recipient.
func (n OTPNotifier) SendOTP(ctx context.Context, to, code string) {
	err := n.M.Send(ctx, Message{
		Subject: "Your OTP for Attendance",
		Body:    fmt.Sprintf("Your OTP is %s.", code),
		From:    n.From,
		To:      []string{to},
	})
	if err != nil {
		log.Printf("mailer: otp dispatch to %s failed: %v", to, err)
	}
}
