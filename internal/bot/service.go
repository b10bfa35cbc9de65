// Package bot implements the slash-command surface of the presence board:
// parsing command text, mutating the shared schedule store, persisting the
// snapshot, and keeping the pinned board message current.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zerollpaper/presence-bot/internal/board"
	"github.com/zerollpaper/presence-bot/internal/logging"
	"github.com/zerollpaper/presence-bot/internal/persistence"
	"github.com/zerollpaper/presence-bot/internal/schedule"
)

// ErrNotAdmin is returned when a non-admin invokes an admin-gated command.
var ErrNotAdmin = errors.New("bot: not an admin")

// UsageError is a user-facing validation failure. The dispatcher surfaces its
// message verbatim instead of the generic failure notice, and no state was
// mutated when one is returned.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// MessageRef identifies a posted chat message.
type MessageRef struct {
	Channel   string
	Timestamp string
}

// HistoryMessage is the subset of a channel-history message the purge
// command inspects.
type HistoryMessage struct {
	UserID    string
	BotID     string
	Timestamp string
}

// IdentityResolver maps platform user ids to the display names the store is
// keyed by.
type IdentityResolver interface {
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

// MessageSink abstracts the chat platform operations the service needs.
// Pin and unpin are best-effort for callers that choose to swallow failures.
type MessageSink interface {
	PostMessage(ctx context.Context, channel, text string) (MessageRef, error)
	UpdateMessage(ctx context.Context, ref MessageRef, text string) error
	PostEphemeral(ctx context.Context, channel, userID, text string) error
	PinMessage(ctx context.Context, ref MessageRef) error
	UnpinMessage(ctx context.Context, ref MessageRef) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	ListHistory(ctx context.Context, channel, cursor string) ([]HistoryMessage, string, error)
	BotUserID(ctx context.Context) (string, error)
}

// Service handles one command at a time: every handler locks, mutates the
// store, persists the snapshot, and only then pushes the best-effort board
// render. A render failure never rolls back the committed change.
type Service struct {
	mu       sync.Mutex
	store    *schedule.Store
	state    persistence.Store
	sink     MessageSink
	identity IdentityResolver
	admins   map[string]struct{}
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires the command layer. now defaults to time.Now and logger to
// slog.Default when nil.
func NewService(store *schedule.Store, state persistence.Store, sink MessageSink, identity IdentityResolver, adminIDs []string, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Service{
		store:    store,
		state:    state,
		sink:     sink,
		identity: identity,
		admins:   admins,
		now:      now,
		logger:   logger,
	}
}

// RefreshBoard re-renders the pinned board message after sweeping stale
// entries. Safe to call from the cron scheduler; failures are logged and
// swallowed.
func (s *Service) RefreshBoard(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshBoardLocked(ctx)
}

func (s *Service) refreshBoardLocked(ctx context.Context) {
	logger := s.log(ctx)

	ref := s.store.BoardMessage()
	if ref.Channel == "" || ref.Timestamp == "" {
		logger.Debug("no board message registered, skipping refresh")
		return
	}

	now := s.now()
	if removed := s.store.CleanupPast(now); removed > 0 {
		logger.Info("removed stale entries", "count", removed)
		if err := s.persist(ctx); err != nil {
			logger.Error("persist after cleanup failed", "error", err)
		}
	}

	if err := s.sink.UpdateMessage(ctx, MessageRef(ref), s.boardText(now)); err != nil {
		logger.Error("board update failed", "error", err)
	}
}

// boardText composes the pinned board body: today's list plus the 7-day strip.
func (s *Service) boardText(now time.Time) string {
	return board.RenderDay(s.store, now) +
		"\n\n" + board.RenderWeek(s.store, now) +
		"\n\nLast updated: " + now.Format("15:04")
}

func (s *Service) persist(ctx context.Context) error {
	if err := s.state.Save(ctx, s.store.Snapshot()); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (s *Service) resolveName(ctx context.Context, userID string) (string, error) {
	name, err := s.identity.ResolveDisplayName(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve display name for %s: %w", userID, err)
	}
	return name, nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger)
}
