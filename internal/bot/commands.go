package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zerollpaper/presence-bot/internal/board"
	"github.com/zerollpaper/presence-bot/internal/dateparse"
	"github.com/zerollpaper/presence-bot/internal/schedule"
)

var (
	weekCountPattern = regexp.MustCompile(`^(\d+)\s*(?:weeks?)?$`)
	mentionPattern   = regexp.MustCompile(`^<@([A-Z0-9]+)(?:\|[^>]+)?>$`)
)

const maxClearWeeks = 10

// SetStatus registers the invoking user's status for the dates parsed from
// text. Explicit-date tokens are honored only for date-eligible statuses;
// everything the parser cannot place becomes the note.
func (s *Service) SetStatus(ctx context.Context, userID, channel, statusName, text string) (string, error) {
	status := schedule.Status(statusName)
	if !schedule.Known(status) {
		return "", usageErrorf("unknown status %q", statusName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.resolveName(ctx, userID)
	if err != nil {
		return "", err
	}

	now := s.now()
	result := dateparse.Parse(text, true, schedule.DateEligible(status), now)

	s.store.SetStatus(name, status, result.Dates, result.Note)
	if err := s.persist(ctx); err != nil {
		return "", err
	}
	s.refreshBoardLocked(ctx)

	return s.statusAck(status, result), nil
}

// statusAck builds the confirmation line, led by the status's own glyph,
// listing dates only when the entry covers something other than just today.
func (s *Service) statusAck(status schedule.Status, result dateparse.Result) string {
	ack := schedule.Glyph(status) + " set to " + string(status)
	todayKey := schedule.DateKey(s.now())
	if len(result.Dates) != 1 || schedule.DateKey(result.Dates[0]) != todayKey {
		parts := make([]string, 0, len(result.Dates))
		for _, date := range result.Dates {
			parts = append(parts, fmt.Sprintf("%d/%d", int(date.Month()), date.Day()))
		}
		ack += ": " + strings.Join(parts, ", ")
	}
	if result.Note != "" {
		ack += " (" + result.Note + ")"
	}
	return ack
}

// UpdateNote sets or clears the note on today's entry, creating an "in" entry
// when the user has none yet.
func (s *Service) UpdateNote(ctx context.Context, userID, channel, text string) (string, error) {
	note := strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.resolveName(ctx, userID)
	if err != nil {
		return "", err
	}

	today := s.now()
	status := schedule.StatusIn
	if entry, ok := s.store.EntryOn(name, schedule.DateKey(today)); ok && entry.Status != "" {
		status = entry.Status
	}
	s.store.SetStatus(name, status, []time.Time{today}, note)
	if err := s.persist(ctx); err != nil {
		return "", err
	}
	s.refreshBoardLocked(ctx)

	if note == "" {
		return "📝 note cleared", nil
	}
	return "📝 note updated: " + note, nil
}

// Clear removes entries for the invoking user. The argument selects the
// window: empty for today, "week" for the next 7 days, "N weeks" for up to
// ten weeks, or "all" for everything.
func (s *Service) Clear(ctx context.Context, userID, channel, text string) (string, error) {
	arg := strings.ToLower(strings.TrimSpace(text))

	// Validate the argument before looking at any state. -1 selects the
	// whole schedule, 0 just today.
	clearDays := 0
	switch arg {
	case "all":
		clearDays = -1
	case "":
	case "week":
		clearDays = 7
	default:
		m := weekCountPattern.FindStringSubmatch(arg)
		if m == nil {
			return "", usageErrorf("usage: /clear [week | N weeks | all]")
		}
		weeks, err := strconv.Atoi(m[1])
		if err != nil || weeks < 1 || weeks > maxClearWeeks {
			return "", usageErrorf("week count must be between 1 and %d", maxClearWeeks)
		}
		clearDays = weeks * 7
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.resolveName(ctx, userID)
	if err != nil {
		return "", err
	}
	if !s.store.HasPerson(name) {
		return "🧹 nothing to clear", nil
	}

	today := s.now()
	var removed int
	switch {
	case clearDays < 0:
		removed = s.store.ClearAll(name)
	case clearDays == 0:
		removed = s.store.ClearToday(name, today)
	default:
		removed = s.store.ClearRange(name, today, clearDays)
	}

	if err := s.persist(ctx); err != nil {
		return "", err
	}
	s.refreshBoardLocked(ctx)

	if removed == 1 {
		return "🧹 cleared 1 entry", nil
	}
	return fmt.Sprintf("🧹 cleared %d entries", removed), nil
}

// BoardQuery renders a board view on demand. An empty argument shows today,
// "week" the 7-day window, "N weeks" an N-week grid, and a user mention that
// person's upcoming schedule as an ephemeral reply.
func (s *Service) BoardQuery(ctx context.Context, userID, channel, text string) (string, error) {
	arg := strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now()
	if removed := s.store.CleanupPast(today); removed > 0 {
		if err := s.persist(ctx); err != nil {
			return "", err
		}
	}

	if m := mentionPattern.FindStringSubmatch(arg); m != nil {
		name, err := s.resolveName(ctx, m[1])
		if err != nil {
			return "", err
		}
		body := board.RenderPersonUpcoming(s.store, name, today)
		if err := s.sink.PostEphemeral(ctx, channel, userID, body); err != nil {
			return "", fmt.Errorf("post ephemeral schedule: %w", err)
		}
		return "", nil
	}

	switch strings.ToLower(arg) {
	case "":
		return board.RenderDay(s.store, today), nil
	case "week":
		return board.RenderRange(s.store, today, 7), nil
	default:
		m := weekCountPattern.FindStringSubmatch(strings.ToLower(arg))
		if m == nil {
			return "", usageErrorf("usage: /board [week | N weeks | @user]")
		}
		weeks, err := strconv.Atoi(m[1])
		if err != nil || weeks < 1 || weeks > maxClearWeeks {
			return "", usageErrorf("week count must be between 1 and %d", maxClearWeeks)
		}
		return board.RenderRange(s.store, today, weeks*7), nil
	}
}

// Setup posts a fresh board message in the channel, pins it, and records it as
// the live board. A previously pinned board is unpinned best-effort.
func (s *Service) Setup(ctx context.Context, userID, channel string) (string, error) {
	logger := s.log(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev := s.store.BoardMessage(); prev.Channel != "" && prev.Timestamp != "" {
		if err := s.sink.UnpinMessage(ctx, MessageRef(prev)); err != nil {
			logger.Warn("unpin previous board failed", "error", err)
		}
	}

	ref, err := s.sink.PostMessage(ctx, channel, s.boardText(s.now()))
	if err != nil {
		return "", fmt.Errorf("post board message: %w", err)
	}
	if err := s.sink.PinMessage(ctx, ref); err != nil {
		logger.Warn("pin board message failed", "error", err)
	}

	s.store.SetBoardMessage(schedule.BoardMessageRef(ref))
	if err := s.persist(ctx); err != nil {
		return "", err
	}
	return "📌 presence board created and pinned", nil
}

// Purge deletes every message the bot posted in the channel and forgets the
// board reference. Admin only.
func (s *Service) Purge(ctx context.Context, userID, channel string) (string, error) {
	if _, ok := s.admins[userID]; !ok {
		return "", ErrNotAdmin
	}
	logger := s.log(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	botID, err := s.sink.BotUserID(ctx)
	if err != nil {
		return "", fmt.Errorf("look up bot user: %w", err)
	}

	deleted := 0
	cursor := ""
	for {
		messages, next, err := s.sink.ListHistory(ctx, channel, cursor)
		if err != nil {
			return "", fmt.Errorf("list channel history: %w", err)
		}
		for _, msg := range messages {
			if msg.UserID != botID && msg.BotID == "" {
				continue
			}
			ref := MessageRef{Channel: channel, Timestamp: msg.Timestamp}
			if err := s.sink.DeleteMessage(ctx, ref); err != nil {
				logger.Warn("delete bot message failed", "ts", msg.Timestamp, "error", err)
				continue
			}
			deleted++
		}
		if next == "" {
			break
		}
		cursor = next
	}

	s.store.SetBoardMessage(schedule.BoardMessageRef{})
	if err := s.persist(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("🗑 deleted %d bot message(s)", deleted), nil
}
