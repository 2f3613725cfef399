package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
)

// recordingSender collects sends and fails for the recipients in failFor.
type recordingSender struct {
	mu      sync.Mutex
	sent    []RecipientID
	failFor map[RecipientID]bool
}

func (s *recordingSender) Send(_ context.Context, recipient RecipientID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[recipient] {
		return errors.New("channel_not_found")
	}
	s.sent = append(s.sent, recipient)
	return nil
}

type failingResolver struct{}

func (failingResolver) ResolveRecipients(context.Context, []string) ([]RecipientID, error) {
	return nil, errors.New("directory offline")
}

func TestDispatch_SendsOncePerRecipient(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(IdentityResolver{}, sender, zerolog.Nop()).WithConcurrency(2)

	report := d.Dispatch(context.Background(), []string{"U1", "U2", "U1", "U3", ""}, "hello")

	assert.True(t, report.OK())
	assert.Equal(t, 3, report.Recipients)
	assert.Equal(t, 3, report.Sent)
	sort.Slice(sender.sent, func(i, j int) bool { return sender.sent[i] < sender.sent[j] })
	assert.Equal(t, []RecipientID{"U1", "U2", "U3"}, sender.sent)
}

func TestDispatch_FailureIsIsolated(t *testing.T) {
	// GIVEN: One recipient whose delivery fails
	sender := &recordingSender{failFor: map[RecipientID]bool{"U2": true}}
	d := NewDispatcher(IdentityResolver{}, sender, zerolog.Nop())

	// WHEN: Dispatching to three recipients
	report := d.Dispatch(context.Background(), []string{"U1", "U2", "U3"}, "hello")

	// THEN: The other two still get the message
	assert.False(t, report.OK())
	assert.Equal(t, 2, report.Sent)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, RecipientID("U2"), report.Failed[0].Recipient)
	assert.ErrorIs(t, report.Failed[0].Err, generic.ErrNotification)
}

func TestDispatch_ResolveFailure(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(failingResolver{}, sender, zerolog.Nop())

	report := d.Dispatch(context.Background(), []string{"emp-1"}, "hello")

	assert.False(t, report.OK())
	assert.ErrorIs(t, report.ResolveErr, generic.ErrNotification)
	assert.Empty(t, sender.sent)
}

func TestDirectoryResolver(t *testing.T) {
	ctx := context.Background()
	subjects := store.NewMemory()
	require.NoError(t, subjects.SaveSubject(ctx, generic.Subject{ID: "emp-1", ChatID: "U100"}))
	require.NoError(t, subjects.SaveSubject(ctx, generic.Subject{ID: "emp-2"}))
	require.NoError(t, subjects.SaveSubject(ctx, generic.Subject{ID: "emp-3", ChatID: "U100"}))
	require.NoError(t, subjects.SaveSubject(ctx, generic.Subject{ID: "room-1", Kind: generic.SubjectRoom, ChatID: "C200"}))

	r := &DirectoryResolver{Subjects: subjects, Log: zerolog.Nop()}
	got, err := r.ResolveRecipients(ctx, []string{"emp-1", "emp-2", "ghost", "emp-3", "room-1"})

	require.NoError(t, err)
	assert.Equal(t, []RecipientID{"U100", "C200"}, got)
}

func TestStatusMessage(t *testing.T) {
	got := StatusMessage(generic.CategorySettlement, generic.NewPeriod(2024, 3), generic.StatusApproved)
	assert.Equal(t, "Your settlement for 2024-03 is now approved", got)
}

// fakePoster stands in for the Slack Web API client.
type fakePoster struct {
	channel string
	err     error
}

func (f *fakePoster) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.channel = channelID
	return channelID, "1700000000.000100", f.err
}

func TestSlack_Send(t *testing.T) {
	poster := &fakePoster{}
	s := &Slack{client: poster}

	require.NoError(t, s.Send(context.Background(), "U100", "hi"))
	assert.Equal(t, "U100", poster.channel)

	poster.err = errors.New("not_in_channel")
	err := s.Send(context.Background(), "C1", "hi")
	assert.ErrorContains(t, err, "not_in_channel")
}

func TestNewSender(t *testing.T) {
	assert.IsType(t, LogSender{}, NewSender("", zerolog.Nop()))
	assert.IsType(t, &Slack{}, NewSender("xoxb-test", zerolog.Nop()))
}
