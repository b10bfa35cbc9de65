package persistence

// LegacyEntry is the pre-dates flat board shape: one status per person with
// no date dimension.
type LegacyEntry struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// MigrateLegacy converts a legacy flat board into the current snapshot shape,
// filing every non-empty status under todayKey. Entries with an empty status
// carried no information and are dropped.
func MigrateLegacy(board map[string]LegacyEntry, boardMessage BoardMessageRef, todayKey string) Snapshot {
	schedules := make(map[string]map[string]Entry, len(board))
	for person, legacy := range board {
		if legacy.Status == "" {
			continue
		}
		schedules[person] = map[string]Entry{
			todayKey: {Status: legacy.Status, Note: legacy.Note},
		}
	}
	return Snapshot{Schedules: schedules, BoardMessage: boardMessage}
}
