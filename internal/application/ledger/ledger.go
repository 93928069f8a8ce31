// Package ledger appends audit entries to a claim's history.
// Entries are never reordered, rewritten or removed once appended.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/claimflow/internal/domain/apperr"
	"github.com/garyjia/claimflow/internal/domain/entity"
)

// Clock returns the server-observed time
type Clock func() time.Time

// Ledger records history entries with server timestamps
type Ledger struct {
	now Clock
}

// Option configures the ledger
type Option func(*Ledger)

// WithClock overrides the time source
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		l.now = clock
	}
}

// New creates a ledger using the UTC wall clock
func New(opts ...Option) *Ledger {
	l := &Ledger{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends one entry to claim.History and returns it
func (l *Ledger) Record(claim *entity.Claim, actor *entity.Actor, action entity.HistoryAction, note string) (entity.HistoryEntry, error) {
	if claim == nil {
		return entity.HistoryEntry{}, fmt.Errorf("record history: nil claim")
	}
	if !action.IsValid() {
		return entity.HistoryEntry{}, apperr.ValidationFailed("unknown history action %q", action)
	}
	if actor == nil || actor.ID == "" {
		return entity.HistoryEntry{}, apperr.ValidationFailed("history entry requires an actor")
	}

	entry := entity.HistoryEntry{
		Seq:       claim.LastSeq() + 1,
		Timestamp: l.now(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Note:      note,
	}
	claim.History = append(claim.History, entry)
	return entry, nil
}

// Sorted returns a copy of entries ordered by timestamp, ties broken by insertion order
func Sorted(entries []entity.HistoryEntry) []entity.HistoryEntry {
	out := make([]entity.HistoryEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Latest returns the most recent entry by the same ordering as Sorted
func Latest(entries []entity.HistoryEntry) (entity.HistoryEntry, bool) {
	if len(entries) == 0 {
		return entity.HistoryEntry{}, false
	}
	sorted := Sorted(entries)
	return sorted[len(sorted)-1], true
}
