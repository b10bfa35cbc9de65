package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/zerollpaper/presence-bot/internal/persistence"
	"github.com/zerollpaper/presence-bot/internal/schedule"
	"github.com/zerollpaper/presence-bot/internal/testfixtures"
)

type postedMessage struct {
	Channel string
	Text    string
}

type ephemeralMessage struct {
	Channel string
	UserID  string
	Text    string
}

type sinkStub struct {
	posted     []postedMessage
	updated    []postedMessage
	ephemerals []ephemeralMessage
	pinned     []MessageRef
	unpinned   []MessageRef
	deleted    []MessageRef

	postRef   MessageRef
	updateErr error
	deleteErr error

	botID   string
	history [][]HistoryMessage
	cursors []string
	calls   int
}

func (s *sinkStub) PostMessage(ctx context.Context, channel, text string) (MessageRef, error) {
	s.posted = append(s.posted, postedMessage{Channel: channel, Text: text})
	if s.postRef == (MessageRef{}) {
		s.postRef = MessageRef{Channel: channel, Timestamp: "100.1"}
	}
	return s.postRef, nil
}

func (s *sinkStub) UpdateMessage(ctx context.Context, ref MessageRef, text string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, postedMessage{Channel: ref.Channel, Text: text})
	return nil
}

func (s *sinkStub) PostEphemeral(ctx context.Context, channel, userID, text string) error {
	s.ephemerals = append(s.ephemerals, ephemeralMessage{Channel: channel, UserID: userID, Text: text})
	return nil
}

func (s *sinkStub) PinMessage(ctx context.Context, ref MessageRef) error {
	s.pinned = append(s.pinned, ref)
	return nil
}

func (s *sinkStub) UnpinMessage(ctx context.Context, ref MessageRef) error {
	s.unpinned = append(s.unpinned, ref)
	return nil
}

func (s *sinkStub) DeleteMessage(ctx context.Context, ref MessageRef) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *sinkStub) ListHistory(ctx context.Context, channel, cursor string) ([]HistoryMessage, string, error) {
	if s.calls >= len(s.history) {
		return nil, "", nil
	}
	page := s.history[s.calls]
	next := ""
	if s.calls < len(s.cursors) {
		next = s.cursors[s.calls]
	}
	s.calls++
	return page, next, nil
}

func (s *sinkStub) BotUserID(ctx context.Context) (string, error) {
	return s.botID, nil
}

type identityStub struct {
	names map[string]string
	err   error
}

func (i *identityStub) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	if i.err != nil {
		return "", i.err
	}
	if name, ok := i.names[userID]; ok {
		return name, nil
	}
	return "user-" + userID, nil
}

type stateStub struct {
	saves   []persistence.Snapshot
	saveErr error
}

func (s *stateStub) Load(ctx context.Context) (persistence.Snapshot, error) {
	return persistence.Snapshot{}, nil
}

func (s *stateStub) Save(ctx context.Context, snap persistence.Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves = append(s.saves, snap)
	return nil
}

func (s *stateStub) Close() error { return nil }

type fixture struct {
	service  *Service
	store    *schedule.Store
	state    *stateStub
	sink     *sinkStub
	identity *identityStub
	clock    *testfixtures.Clock
}

func newFixture(t *testing.T, admins ...string) *fixture {
	t.Helper()
	store := schedule.NewStore()
	state := &stateStub{}
	sink := &sinkStub{botID: "UBOT"}
	identity := &identityStub{names: map[string]string{"U1": "alice", "U2": "bob"}}
	clock := testfixtures.NewClock(time.Time{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(store, state, sink, identity, admins, clock.NowFunc(), logger)
	return &fixture{service: service, store: store, state: state, sink: sink, identity: identity, clock: clock}
}

func (f *fixture) today() time.Time { return f.clock.Now() }

func TestSetStatusToday(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetBoardMessage(schedule.BoardMessageRef{Channel: "C1", Timestamp: "1.1"})

	ack, err := f.service.SetStatus(context.Background(), "U1", "C1", "in", "")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if ack != "✅ set to in" {
		t.Errorf("ack = %q", ack)
	}

	entry, ok := f.store.EntryOn("alice", schedule.DateKey(f.today()))
	if !ok || entry.Status != schedule.StatusIn {
		t.Errorf("entry = %+v ok=%v", entry, ok)
	}
	if len(f.state.saves) != 1 {
		t.Errorf("saves = %d, want 1", len(f.state.saves))
	}
	if len(f.sink.updated) != 1 {
		t.Errorf("board updates = %d, want 1", len(f.sink.updated))
	}
	if !strings.Contains(f.sink.updated[0].Text, "Last updated: 09:30") {
		t.Errorf("board text missing timestamp:\n%s", f.sink.updated[0].Text)
	}
}

func TestSetStatusListsDatesAndNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	ack, err := f.service.SetStatus(context.Background(), "U1", "C1", "trip", "2/1-2/3 Osaka")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if ack != "✈️ set to trip: 2/1, 2/2, 2/3 (Osaka)" {
		t.Errorf("ack = %q", ack)
	}
	if _, ok := f.store.EntryOn("alice", "2026-02-02"); !ok {
		t.Error("middle range date missing")
	}
}

func TestSetStatusDateGatedStatusKeepsDateAsNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// "in" does not accept explicit dates, so the token becomes the note
	// and the entry lands on today.
	ack, err := f.service.SetStatus(context.Background(), "U1", "C1", "in", "2/1")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if ack != "✅ set to in (2/1)" {
		t.Errorf("ack = %q", ack)
	}
	entry, ok := f.store.EntryOn("alice", schedule.DateKey(f.today()))
	if !ok || entry.Note != "2/1" {
		t.Errorf("entry = %+v ok=%v", entry, ok)
	}
}

func TestSetStatusAckLeadsWithStatusGlyph(t *testing.T) {
	t.Parallel()

	// The ack must carry the status's own glyph from the central table,
	// not a fixed marker.
	tests := []struct {
		status string
		text   string
		want   string
	}{
		{status: "trip", text: "2/1", want: "✈️ set to trip: 2/1"},
		{status: "out", text: "", want: "❌ set to out"},
		{status: "home", text: "mon", want: "🏠 set to home: 1/19"},
		{status: "maybe", text: "", want: "🤔 set to maybe"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ack, err := f.service.SetStatus(context.Background(), "U1", "C1", tt.status, tt.text)
			if err != nil {
				t.Fatalf("SetStatus: %v", err)
			}
			if ack != tt.want {
				t.Errorf("ack = %q, want %q", ack, tt.want)
			}
		})
	}
}

func TestSetStatusUnknownStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var usage *UsageError
	if _, err := f.service.SetStatus(context.Background(), "U1", "C1", "vacationing", ""); !errors.As(err, &usage) {
		t.Fatalf("err = %v, want UsageError", err)
	}
}

func TestSetStatusSurvivesBoardRenderFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetBoardMessage(schedule.BoardMessageRef{Channel: "C1", Timestamp: "1.1"})
	f.sink.updateErr = errors.New("slack down")

	ack, err := f.service.SetStatus(context.Background(), "U1", "C1", "in", "")
	if err != nil {
		t.Fatalf("SetStatus must not fail on a render error: %v", err)
	}
	if ack == "" {
		t.Error("ack missing")
	}
	if len(f.state.saves) != 1 {
		t.Errorf("saves = %d, the mutation must still persist", len(f.state.saves))
	}
}

func TestUpdateNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	ack, err := f.service.UpdateNote(context.Background(), "U1", "C1", "wfh am")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if ack != "📝 note updated: wfh am" {
		t.Errorf("ack = %q", ack)
	}
	entry, _ := f.store.EntryOn("alice", schedule.DateKey(f.today()))
	if entry.Status != schedule.StatusIn || entry.Note != "wfh am" {
		t.Errorf("entry = %+v, want default in status", entry)
	}
}

func TestUpdateNoteKeepsExistingStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetStatus("alice", schedule.StatusOut, []time.Time{f.today()}, "")

	if _, err := f.service.UpdateNote(context.Background(), "U1", "C1", "back at 3"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	entry, _ := f.store.EntryOn("alice", schedule.DateKey(f.today()))
	if entry.Status != schedule.StatusOut {
		t.Errorf("status = %q, must keep the existing one", entry.Status)
	}
}

func TestUpdateNoteCleared(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ack, err := f.service.UpdateNote(context.Background(), "U1", "C1", "   ")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if ack != "📝 note cleared" {
		t.Errorf("ack = %q", ack)
	}
}

func TestClearVariants(t *testing.T) {
	t.Parallel()

	t.Run("nothing to clear", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ack, err := f.service.Clear(context.Background(), "U1", "C1", "")
		if err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if ack != "🧹 nothing to clear" {
			t.Errorf("ack = %q", ack)
		}
	})

	t.Run("today", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.store.SetStatus("alice", schedule.StatusIn, []time.Time{f.today()}, "")
		ack, err := f.service.Clear(context.Background(), "U1", "C1", "")
		if err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if ack != "🧹 cleared 1 entry" {
			t.Errorf("ack = %q", ack)
		}
	})

	t.Run("two weeks", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.store.SetStatus("alice", schedule.StatusIn, []time.Time{
			f.today(), f.today().AddDate(0, 0, 10), f.today().AddDate(0, 0, 20),
		}, "")
		ack, err := f.service.Clear(context.Background(), "U1", "C1", "2 weeks")
		if err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if ack != "🧹 cleared 2 entries" {
			t.Errorf("ack = %q", ack)
		}
		if _, ok := f.store.EntryOn("alice", schedule.DateKey(f.today().AddDate(0, 0, 20))); !ok {
			t.Error("entry outside the window must survive")
		}
	})

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.store.SetStatus("alice", schedule.StatusIn, []time.Time{f.today(), f.today().AddDate(0, 0, 30)}, "")
		ack, err := f.service.Clear(context.Background(), "U1", "C1", "all")
		if err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if ack != "🧹 cleared 2 entries" {
			t.Errorf("ack = %q", ack)
		}
		if f.store.HasPerson("alice") {
			t.Error("ClearAll must remove the person record")
		}
	})
}

func TestClearRejectsBadWeekCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetStatus("alice", schedule.StatusIn, []time.Time{f.today()}, "")

	for _, arg := range []string{"11 weeks", "0 weeks", "soon", "weeks"} {
		var usage *UsageError
		if _, err := f.service.Clear(context.Background(), "U1", "C1", arg); !errors.As(err, &usage) {
			t.Errorf("Clear(%q) err = %v, want UsageError", arg, err)
		}
	}
	// Validation failures must not mutate or persist anything.
	if _, ok := f.store.EntryOn("alice", schedule.DateKey(f.today())); !ok {
		t.Error("entry must survive rejected clears")
	}
	if len(f.state.saves) != 0 {
		t.Errorf("saves = %d, want 0", len(f.state.saves))
	}
}

func TestBoardQueryViews(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetStatus("alice", schedule.StatusIn, []time.Time{f.today()}, "")

	day, err := f.service.BoardQuery(context.Background(), "U2", "C1", "")
	if err != nil {
		t.Fatalf("BoardQuery: %v", err)
	}
	if !strings.Contains(day, "Presence board 2026-01-15") {
		t.Errorf("day view:\n%s", day)
	}

	week, err := f.service.BoardQuery(context.Background(), "U2", "C1", "week")
	if err != nil {
		t.Fatalf("BoardQuery week: %v", err)
	}
	if !strings.HasPrefix(week, "```") {
		t.Errorf("week view must be a code block:\n%s", week)
	}

	grid, err := f.service.BoardQuery(context.Background(), "U2", "C1", "3 weeks")
	if err != nil {
		t.Fatalf("BoardQuery 3 weeks: %v", err)
	}
	if !strings.Contains(grid, "Presence board (21 days)") {
		t.Errorf("grid view:\n%s", grid)
	}
}

func TestBoardQueryMentionGoesEphemeral(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetStatus("alice", schedule.StatusTrip, []time.Time{f.today().AddDate(0, 0, 2)}, "Osaka")

	reply, err := f.service.BoardQuery(context.Background(), "U2", "C1", "<@U1|alice>")
	if err != nil {
		t.Fatalf("BoardQuery: %v", err)
	}
	if reply != "" {
		t.Errorf("reply = %q, want empty when answered ephemerally", reply)
	}
	if len(f.sink.ephemerals) != 1 {
		t.Fatalf("ephemerals = %d, want 1", len(f.sink.ephemerals))
	}
	msg := f.sink.ephemerals[0]
	if msg.UserID != "U2" {
		t.Errorf("ephemeral target = %q, want the requester", msg.UserID)
	}
	if !strings.Contains(msg.Text, "Schedule for alice") {
		t.Errorf("ephemeral text:\n%s", msg.Text)
	}
}

func TestBoardQuerySweepsStaleEntries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetStatus("alice", schedule.StatusIn, []time.Time{f.today().AddDate(0, 0, -1)}, "")

	if _, err := f.service.BoardQuery(context.Background(), "U2", "C1", ""); err != nil {
		t.Fatalf("BoardQuery: %v", err)
	}
	if f.store.HasPerson("alice") {
		t.Error("stale-only person must be swept before rendering")
	}
	if len(f.state.saves) != 1 {
		t.Errorf("saves = %d, the sweep must persist", len(f.state.saves))
	}
}

func TestSetup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetBoardMessage(schedule.BoardMessageRef{Channel: "C1", Timestamp: "0.9"})

	ack, err := f.service.Setup(context.Background(), "U1", "C1")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if ack != "📌 presence board created and pinned" {
		t.Errorf("ack = %q", ack)
	}
	if len(f.sink.unpinned) != 1 || f.sink.unpinned[0].Timestamp != "0.9" {
		t.Errorf("unpinned = %+v, want the previous board", f.sink.unpinned)
	}
	if len(f.sink.posted) != 1 || len(f.sink.pinned) != 1 {
		t.Errorf("posted = %d pinned = %d, want 1 each", len(f.sink.posted), len(f.sink.pinned))
	}
	if ref := f.store.BoardMessage(); ref.Timestamp != "100.1" {
		t.Errorf("board ref = %+v, want the new message", ref)
	}
	if len(f.state.saves) != 1 {
		t.Errorf("saves = %d, want 1", len(f.state.saves))
	}
}

func TestPurgeRequiresAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "U9")
	if _, err := f.service.Purge(context.Background(), "U1", "C1"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("err = %v, want ErrNotAdmin", err)
	}
}

func TestPurgeDeletesBotMessagesAcrossPages(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "U1")
	f.store.SetBoardMessage(schedule.BoardMessageRef{Channel: "C1", Timestamp: "1.1"})
	f.sink.history = [][]HistoryMessage{
		{
			{UserID: "UBOT", Timestamp: "1.1"},
			{UserID: "U2", Timestamp: "1.2"},
			{BotID: "B42", Timestamp: "1.3"},
		},
		{
			{UserID: "UBOT", Timestamp: "2.1"},
			{UserID: "U1", Timestamp: "2.2"},
		},
	}
	f.sink.cursors = []string{"next-page"}

	ack, err := f.service.Purge(context.Background(), "U1", "C1")
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if ack != "🗑 deleted 3 bot message(s)" {
		t.Errorf("ack = %q", ack)
	}
	if len(f.sink.deleted) != 3 {
		t.Fatalf("deleted = %+v, want 3 bot messages", f.sink.deleted)
	}
	for _, ref := range f.sink.deleted {
		if ref.Timestamp == "1.2" || ref.Timestamp == "2.2" {
			t.Errorf("human message %s must not be deleted", ref.Timestamp)
		}
	}
	if ref := f.store.BoardMessage(); ref != (schedule.BoardMessageRef{}) {
		t.Errorf("board ref = %+v, want cleared", ref)
	}
}

func TestRefreshBoardWithoutBoardIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.service.RefreshBoard(context.Background())
	if len(f.sink.updated) != 0 {
		t.Errorf("updates = %d, want none without a board ref", len(f.sink.updated))
	}
}

func TestRefreshBoardSweepsAndUpdates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetBoardMessage(schedule.BoardMessageRef{Channel: "C1", Timestamp: "1.1"})
	f.store.SetStatus("alice", schedule.StatusIn, []time.Time{f.today().AddDate(0, 0, -2), f.today()}, "")

	f.service.RefreshBoard(context.Background())

	if _, ok := f.store.EntryOn("alice", schedule.DateKey(f.today().AddDate(0, 0, -2))); ok {
		t.Error("stale entry must be swept")
	}
	if len(f.state.saves) != 1 {
		t.Errorf("saves = %d, want 1 after the sweep", len(f.state.saves))
	}
	if len(f.sink.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(f.sink.updated))
	}
	if !strings.Contains(f.sink.updated[0].Text, "alice") {
		t.Errorf("board text:\n%s", f.sink.updated[0].Text)
	}
}
