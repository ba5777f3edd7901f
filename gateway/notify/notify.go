// Package notify schedules out-of-band alerts when a user asks for a
// human follow-up. Delivery is best-effort and unobserved: the enclosing
// request never waits on it and never learns its outcome.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
)

const (
	// defaultDelay smooths bursts before the channel is hit.
	defaultDelay = 1 * time.Second
	sendTimeout  = 10 * time.Second
	title        = "New User Question"
)

// TriggerOption customizes a Trigger.
type TriggerOption func(*Trigger)

func WithDelay(d time.Duration) TriggerOption {
	return func(t *Trigger) {
		if d >= 0 {
			t.delay = d
		}
	}
}

// Trigger fires follow-up alerts through a Notifier.
type Trigger struct {
	notifier contractx.Notifier
	delay    time.Duration
}

func NewTrigger(notifier contractx.Notifier, opts ...TriggerOption) *Trigger {
	t := &Trigger{notifier: notifier, delay: defaultDelay}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Notify schedules one alert and returns immediately. The goroutine uses
// a detached context so it survives the originating request. Failures are
// logged and dropped; there are no retries.
func (t *Trigger) Notify(userID, question, email string) {
	if t == nil || t.notifier == nil {
		return
	}

	msg := fmt.Sprintf("New question from %s:\n\n%s", userID, question)
	if email != "" {
		msg += fmt.Sprintf("\n\nEmail: %s", email)
	}

	go func() {
		time.Sleep(t.delay)

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := t.notifier.Send(ctx, msg, title, 0); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("notification failed")
		}
	}()
}
