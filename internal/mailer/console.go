package mailer

import (
	"context"
	"log"
	"strings"
)

// Console logs messages instead of delivering them. Default backend in dev.
type Console struct{}

var _ Mailer = Console{}

// Send writes the message to the process log.
func (Console) Send(_ context.Context, msg Message) error {
	log.Printf("mail to=%s subject=%q body=%q", strings.Join(msg.To, ","), msg.Subject, msg.Body)
	return nil
}
