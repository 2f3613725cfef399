/*
Package notify delivers best-effort chat messages after approval changes.

PURPOSE:
  A transition may ask for its subjects to be told about the new status.
  Delivery is a side effect that never feeds back into the transition:
  the status change is already committed when Dispatch runs, and every
  failure ends up in the Report and the log, never in an error return.

FLOW:
  identifiers ──▶ Resolver ──▶ recipients ──▶ Sender (one goroutine per
  recipient, bounded) ──▶ Report{Sent, Failed}

IMPLEMENTATIONS:
  Resolver: DirectoryResolver (subject id → chat id via the subject store),
            IdentityResolver (identifiers already are recipient ids)
  Sender:   Slack (slack-go), LogSender (writes the message to the log)

SEE ALSO:
  - approval/service.go: calls Dispatch after a bulk transition commits
  - api/scheduler.go: reminder runs
*/
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/warp/attendance-engine/generic"
)

// RecipientID addresses one chat recipient (a Slack member or channel id).
type RecipientID string

// Resolver maps caller identifiers to recipients.
type Resolver interface {
	ResolveRecipients(ctx context.Context, identifiers []string) ([]RecipientID, error)
}

// Sender delivers one message to one recipient.
type Sender interface {
	Send(ctx context.Context, recipient RecipientID, text string) error
}

// DefaultConcurrency bounds parallel sends per dispatch.
const DefaultConcurrency = 8

// =============================================================================
// REPORT
// =============================================================================

type Failure struct {
	Recipient RecipientID
	Err       error
}

// Report summarizes one dispatch.
type Report struct {
	Recipients int
	Sent       int
	Failed     []Failure
	ResolveErr error
}

// OK reports whether every resolved recipient got the message.
func (r Report) OK() bool { return r.ResolveErr == nil && len(r.Failed) == 0 }

// =============================================================================
// DISPATCHER
// =============================================================================

type Dispatcher struct {
	resolver    Resolver
	sender      Sender
	log         zerolog.Logger
	concurrency int
}

func NewDispatcher(resolver Resolver, sender Sender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		resolver:    resolver,
		sender:      sender,
		log:         log.With().Str("component", "notify").Logger(),
		concurrency: DefaultConcurrency,
	}
}

// WithConcurrency sets the maximum number of parallel sends.
func (d *Dispatcher) WithConcurrency(n int) *Dispatcher {
	if n > 0 {
		d.concurrency = n
	}
	return d
}

// Dispatch resolves the identifiers and sends text to every recipient
// concurrently. It never returns an error; failures are logged and
// reported.
func (d *Dispatcher) Dispatch(ctx context.Context, identifiers []string, text string) Report {
	recipients, err := d.resolver.ResolveRecipients(ctx, identifiers)
	if err != nil {
		d.log.Error().Err(err).Int("identifiers", len(identifiers)).Msg("Could not resolve notification recipients")
		return Report{ResolveErr: fmt.Errorf("%w: resolve recipients: %v", generic.ErrNotification, err)}
	}

	report := Report{Recipients: len(recipients)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, recipient := range recipients {
		recipient := recipient
		g.Go(func() error {
			err := d.sender.Send(ctx, recipient, text)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, Failure{
					Recipient: recipient,
					Err:       fmt.Errorf("%w: %s: %v", generic.ErrNotification, recipient, err),
				})
				d.log.Warn().Err(err).Str("recipient", string(recipient)).Msg("Notification not delivered")
				return nil
			}
			report.Sent++
			return nil
		})
	}
	_ = g.Wait()

	d.log.Info().
		Int("recipients", report.Recipients).
		Int("sent", report.Sent).
		Int("failed", len(report.Failed)).
		Msg("Notification dispatch finished")
	return report
}

// =============================================================================
// MESSAGES
// =============================================================================

// StatusMessage is the default text sent after a status change. when is a
// Period or a DateRange.
func StatusMessage(category generic.Category, when fmt.Stringer, status generic.Status) string {
	return fmt.Sprintf("Your %s for %s is now %s", category, when, status)
}

// ReminderMessage is sent to subjects that haven't submitted a period yet.
func ReminderMessage(category generic.Category, period generic.Period) string {
	return fmt.Sprintf("Reminder: your %s for %s has not been submitted yet", category, period)
}
