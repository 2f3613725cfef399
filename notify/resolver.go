package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/generic"
)

// DirectoryResolver treats identifiers as subject ids and returns each
// subject's chat id. Unknown subjects and subjects without a chat id are
// skipped. Duplicates are dropped, first occurrence wins.
type DirectoryResolver struct {
	Subjects generic.SubjectStore
	Log      zerolog.Logger
}

func (r *DirectoryResolver) ResolveRecipients(ctx context.Context, identifiers []string) ([]RecipientID, error) {
	seen := make(map[RecipientID]bool, len(identifiers))
	var recipients []RecipientID

	for _, id := range identifiers {
		subject, err := r.Subjects.GetSubject(ctx, generic.SubjectID(id))
		if errors.Is(err, generic.ErrSubjectNotFound) {
			r.Log.Debug().Str("subject_id", id).Msg("Skipping unknown notification subject")
			continue
		}
		if err != nil {
			return nil, err
		}
		if subject.ChatID == "" {
			r.Log.Debug().Str("subject_id", id).Msg("Subject has no chat id")
			continue
		}

		rid := RecipientID(subject.ChatID)
		if !seen[rid] {
			seen[rid] = true
			recipients = append(recipients, rid)
		}
	}
	return recipients, nil
}

// IdentityResolver returns the identifiers unchanged, without duplicates.
type IdentityResolver struct{}

func (IdentityResolver) ResolveRecipients(_ context.Context, identifiers []string) ([]RecipientID, error) {
	seen := make(map[string]bool, len(identifiers))
	recipients := make([]RecipientID, 0, len(identifiers))
	for _, id := range identifiers {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, RecipientID(id))
	}
	return recipients, nil
}
