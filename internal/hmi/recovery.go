package hmi

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Decision is the user's answer to a resume prompt.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionYes
	DecisionNo
)

func (d Decision) String() string {
	switch d {
	case DecisionYes:
		return "yes"
	case DecisionNo:
		return "no"
	default:
		return "pending"
	}
}

// Ticket is an open resume prompt for one matched recovery record.
type Ticket struct {
	Record   RecoveryRecord
	decision Decision
	yes      bool
}

// Decision returns the committed answer, or DecisionPending.
func (t *Ticket) Decision() Decision { return t.decision }

// HighlightYes reports which answer Confirm would commit.
func (t *Ticket) HighlightYes() bool { return t.yes }

// Input applies one encoder event. Clockwise moves to No and
// counter-clockwise to Yes; Confirm commits the highlighted answer.
// It reports whether anything changed.
func (t *Ticket) Input(in Input) bool {
	if t.decision != DecisionPending {
		return false
	}
	if in != InputConfirm {
		return yesNo(&t.yes, in)
	}
	if t.yes {
		t.decision = DecisionYes
	} else {
		t.decision = DecisionNo
	}
	return true
}

// Resumer decides, once per media mount, whether a power-loss record can be
// offered for resumption.
type Resumer struct {
	store  RecoveryStore
	logger *slog.Logger
}

// NewResumer returns a Resumer backed by store.
func NewResumer(store RecoveryStore, logger *slog.Logger) *Resumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resumer{store: store, logger: logger}
}

// Check loads the persisted record and matches it against the mounted files.
// It returns nil when there is nothing to offer; stale or invalid records are
// purged on the way.
func (r *Resumer) Check(files []string) (*Ticket, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}
	rec, err := r.store.Load()
	if errors.Is(err, ErrNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recovery record: %w", err)
	}
	if !rec.Valid() {
		r.logger.Warn("discarding invalid recovery record", "file", rec.Filename, "offset", rec.Offset)
		return nil, r.purge()
	}
	if !slices.Contains(files, rec.Filename) {
		r.logger.Info("recovery file not on media, discarding record", "file", rec.Filename)
		return nil, r.purge()
	}
	return &Ticket{Record: rec, yes: true}, nil
}

func (r *Resumer) purge() error {
	if err := r.store.Purge(); err != nil {
		return fmt.Errorf("purge recovery record: %w", err)
	}
	return nil
}
