// Package schedule owns the in-memory presence board state.
package schedule

import (
	"sort"
	"time"

	"github.com/zerollpaper/presence-bot/internal/persistence"
)

// DateKey formats a date as the canonical "YYYY-MM-DD" map key. Keys compare
// chronologically as strings.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Entry records a person's declared state for one calendar day.
type Entry struct {
	Status Status
	Note   string
}

// BoardMessageRef identifies the single pinned board message, when present.
type BoardMessageRef struct {
	Channel   string
	Timestamp string
}

// Store holds the presence state: person name to date key to entry, plus the
// live board message reference.
//
// The store performs no internal locking. Its invariant that a person key is
// removed exactly when their last entry goes away only holds when callers
// serialize mutations, which the command layer does.
type Store struct {
	schedules map[string]map[string]Entry
	board     BoardMessageRef
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{schedules: make(map[string]map[string]Entry)}
}

// FromSnapshot rebuilds a store from a persisted snapshot. Empty inner maps
// are not carried over, re-establishing the emptiness invariant.
func FromSnapshot(snap persistence.Snapshot) *Store {
	store := NewStore()
	for person, days := range snap.Schedules {
		if len(days) == 0 {
			continue
		}
		inner := make(map[string]Entry, len(days))
		for key, entry := range days {
			inner[key] = Entry{Status: Status(entry.Status), Note: entry.Note}
		}
		store.schedules[person] = inner
	}
	store.board = BoardMessageRef(snap.BoardMessage)
	return store
}

// Snapshot exports the current state in its durable shape.
func (s *Store) Snapshot() persistence.Snapshot {
	schedules := make(map[string]map[string]persistence.Entry, len(s.schedules))
	for person, inner := range s.schedules {
		days := make(map[string]persistence.Entry, len(inner))
		for key, entry := range inner {
			days[key] = persistence.Entry{Status: string(entry.Status), Note: entry.Note}
		}
		schedules[person] = days
	}
	return persistence.Snapshot{
		Schedules:    schedules,
		BoardMessage: persistence.BoardMessageRef(s.board),
	}
}

// SetStatus upserts one entry per date for the person, creating their record
// if absent. When dates repeat within one call, the last occurrence wins.
func (s *Store) SetStatus(person string, status Status, dates []time.Time, note string) {
	if len(dates) == 0 {
		return
	}
	inner, ok := s.schedules[person]
	if !ok {
		inner = make(map[string]Entry, len(dates))
		s.schedules[person] = inner
	}
	for _, date := range dates {
		inner[DateKey(date)] = Entry{Status: status, Note: note}
	}
}

// ClearToday removes the person's entry for today's date. Returns the number
// of entries removed (0 or 1).
func (s *Store) ClearToday(person string, today time.Time) int {
	return s.removeKeys(person, []string{DateKey(today)})
}

// ClearRange removes the person's entries within the numDays window starting
// at from (inclusive). Returns the number removed.
func (s *Store) ClearRange(person string, from time.Time, numDays int) int {
	keys := make([]string, 0, numDays)
	for i := 0; i < numDays; i++ {
		keys = append(keys, DateKey(from.AddDate(0, 0, i)))
	}
	return s.removeKeys(person, keys)
}

// ClearAll removes every entry for the person and the person record itself.
// Returns the number removed.
func (s *Store) ClearAll(person string) int {
	removed := len(s.schedules[person])
	delete(s.schedules, person)
	return removed
}

func (s *Store) removeKeys(person string, keys []string) int {
	inner, ok := s.schedules[person]
	if !ok {
		return 0
	}
	removed := 0
	for _, key := range keys {
		if _, ok := inner[key]; ok {
			delete(inner, key)
			removed++
		}
	}
	if len(inner) == 0 {
		delete(s.schedules, person)
	}
	return removed
}

// CleanupPast drops every entry strictly earlier than referenceToday and
// removes persons emptied by the sweep. Returns the total removed count;
// running it twice in a row always yields zero on the second run.
func (s *Store) CleanupPast(referenceToday time.Time) int {
	cutoff := DateKey(referenceToday)
	removed := 0
	for person, inner := range s.schedules {
		for key := range inner {
			if _, err := time.ParseInLocation("2006-01-02", key, referenceToday.Location()); err != nil {
				continue
			}
			if key < cutoff {
				delete(inner, key)
				removed++
			}
		}
		if len(inner) == 0 {
			delete(s.schedules, person)
		}
	}
	return removed
}

// HasPerson reports whether the person has any entry.
func (s *Store) HasPerson(person string) bool {
	_, ok := s.schedules[person]
	return ok
}

// EntryOn returns the person's entry for the given date key.
func (s *Store) EntryOn(person, key string) (Entry, bool) {
	entry, ok := s.schedules[person][key]
	return entry, ok
}

// EntriesOn returns every person's entry for the given date key.
func (s *Store) EntriesOn(key string) map[string]Entry {
	entries := make(map[string]Entry)
	for person, inner := range s.schedules {
		if entry, ok := inner[key]; ok {
			entries[person] = entry
		}
	}
	return entries
}

// PersonSchedule returns a copy of the person's entries keyed by date.
func (s *Store) PersonSchedule(person string) map[string]Entry {
	inner, ok := s.schedules[person]
	if !ok {
		return nil
	}
	out := make(map[string]Entry, len(inner))
	for key, entry := range inner {
		out[key] = entry
	}
	return out
}

// PersonsInRange returns the sorted names of everyone holding at least one
// entry within the numDays window starting at from.
func (s *Store) PersonsInRange(from time.Time, numDays int) []string {
	keys := make([]string, 0, numDays)
	for i := 0; i < numDays; i++ {
		keys = append(keys, DateKey(from.AddDate(0, 0, i)))
	}
	names := make([]string, 0, len(s.schedules))
	for person, inner := range s.schedules {
		for _, key := range keys {
			if _, ok := inner[key]; ok {
				names = append(names, person)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// BoardMessage returns the stored board message reference.
func (s *Store) BoardMessage() BoardMessageRef {
	return s.board
}

// SetBoardMessage records the board message reference.
func (s *Store) SetBoardMessage(ref BoardMessageRef) {
	s.board = ref
}
