package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/vocabot/internal/agent"
	"github.com/ashureev/vocabot/internal/domain"
	"github.com/ashureev/vocabot/internal/history"
	"github.com/ashureev/vocabot/internal/store"
	"github.com/ashureev/vocabot/internal/vocab"
)

type sent struct {
	chatID int64
	text   string
}

// recordingSender captures outbound messages and optionally fails them.
type recordingSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (r *recordingSender) Send(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{chatID: chatID, text: text})
	return r.err
}

func (r *recordingSender) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.text
	}
	return out
}

// MockAcquirer is a mock of Acquirer.
type MockAcquirer struct {
	mock.Mock
}

func (m *MockAcquirer) Acquire(ctx context.Context, opts vocab.Options) (string, error) {
	args := m.Called(ctx, opts)
	return args.String(0), args.Error(1)
}

// MockHistory is a mock of History.
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Stats(n int) (int, []domain.HistoryEntry) {
	args := m.Called(n)
	if args.Get(1) == nil {
		return args.Int(0), nil
	}
	return args.Int(0), args.Get(1).([]domain.HistoryEntry)
}

func (m *MockHistory) Clear(ctx context.Context) {
	m.Called(ctx)
}

const chat int64 = 42

func newEngine(sender Sender, acq Acquirer, hist History) (*Engine, *Store) {
	st := NewStore(nil)
	return NewEngine(st, sender, acq, hist, EngineConfig{Location: time.UTC}), st
}

func activate(t *testing.T, e *Engine, acq *MockAcquirer) {
	t.Helper()
	acq.On("Acquire", mock.Anything, vocab.DefaultOptions()).Return("**Lucid**", nil).Once()
	e.Handle(context.Background(), chat, "ready")
}

type fiveWordGenerator struct{}

func (fiveWordGenerator) Complete(context.Context, agent.CompletionRequest) (string, error) {
	return "1. **Resilient** - ยืดหยุ่น\n" +
		"2. **Meticulous** - พิถีพิถัน\n" +
		"3. **Candid** - ตรงไปตรงมา\n" +
		"4. **Brisk** - รวดเร็ว\n" +
		"5. **Lucid** - ชัดเจน", nil
}

func TestReadyStartsDrillAndRecordsWords(t *testing.T) {
	ctx := context.Background()
	ledger := history.Open(ctx, store.NewJSONFile(filepath.Join(t.TempDir(), "h.json")), nil)
	acq := vocab.NewAcquirer(fiveWordGenerator{}, ledger, vocab.Config{})
	sender := &recordingSender{}
	e, st := newEngine(sender, acq, ledger)

	e.Handle(ctx, chat, "  Ready ")

	texts := sender.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, msgGreeting, texts[0])
	assert.True(t, strings.HasPrefix(texts[1], "📚 *คำศัพท์วันนี้*"))
	assert.Contains(t, texts[1], "**Resilient**")

	sess, ok := st.Get("42")
	require.True(t, ok)
	assert.True(t, sess.Ready)
	assert.False(t, sess.ReminderSent)
	assert.True(t, sess.SessionActive)

	total, recent := ledger.Stats(10)
	assert.Equal(t, 5, total)
	assert.Len(t, recent, 5)
}

func TestThaiReadySynonym(t *testing.T) {
	acq := &MockAcquirer{}
	acq.On("Acquire", mock.Anything, vocab.DefaultOptions()).Return("**Lucid**", nil).Once()
	sender := &recordingSender{}
	e, st := newEngine(sender, acq, &MockHistory{})

	e.Handle(context.Background(), chat, "พร้อม")

	sess, _ := st.Get("42")
	assert.Equal(t, domain.StateActive, sess.State())
	acq.AssertExpectations(t)
}

func TestNudgeSentOnlyOnce(t *testing.T) {
	acq := &MockAcquirer{}
	sender := &recordingSender{}
	e, st := newEngine(sender, acq, &MockHistory{})

	e.Handle(context.Background(), chat, "hello")
	e.Handle(context.Background(), chat, "anyone there?")

	assert.Equal(t, []string{msgNudge}, sender.texts())
	sess, _ := st.Get("42")
	assert.True(t, sess.ReminderSent)
	assert.False(t, sess.Ready)
	acq.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)
}

func TestActiveCommands(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

	tests := []struct {
		name   string
		input  string
		setup  func(*MockAcquirer, *MockHistory)
		want   []string
		active bool
	}{
		{
			name:   "help",
			input:  "HELP",
			want:   []string{msgHelp},
			active: true,
		},
		{
			name:   "thai help",
			input:  "คำสั่ง",
			want:   []string{msgHelp},
			active: true,
		},
		{
			name:   "reset",
			input:  "reset",
			want:   []string{msgReset},
			active: false,
		},
		{
			name:  "new words",
			input: "new",
			setup: func(a *MockAcquirer, _ *MockHistory) {
				a.On("Acquire", mock.Anything, vocab.DefaultOptions()).Return("**Zephyr**", nil).Once()
			},
			want:   []string{msgSearching, formatNew("**Zephyr**")},
			active: true,
		},
		{
			name:  "new words fallback",
			input: "ใหม่",
			setup: func(a *MockAcquirer, _ *MockHistory) {
				a.On("Acquire", mock.Anything, vocab.DefaultOptions()).Return("", vocab.ErrRetriesExhausted).Once()
			},
			want:   []string{msgSearching, msgNewFallback},
			active: true,
		},
		{
			name:  "stats",
			input: "stats",
			setup: func(_ *MockAcquirer, h *MockHistory) {
				h.On("Stats", statsRecent).Return(7, []domain.HistoryEntry{
					{Word: "zephyr", Date: at, Attempt: 1},
					{Word: "lucid", Date: at.Add(-time.Hour), Attempt: 2},
				})
			},
			want: []string{"📊 *สถิติการเรียนรู้*\n\n" +
				"🔢 จำนวนคำทั้งหมด: 7 คำ\n\n" +
				"🕐 *คำล่าสุด 5 คำ:*\n" +
				"1. zephyr (09/03 14:05)\n" +
				"2. lucid (09/03 13:05)\n"},
			active: true,
		},
		{
			name:  "stats empty",
			input: "สถิติ",
			setup: func(_ *MockAcquirer, h *MockHistory) {
				h.On("Stats", statsRecent).Return(0, nil)
			},
			want: []string{"📊 *สถิติการเรียนรู้*\n\n" +
				"🔢 จำนวนคำทั้งหมด: 0 คำ\n\n" +
				"ยังไม่มีประวัติการเรียน\n"},
			active: true,
		},
		{
			name:  "clear",
			input: "clear",
			setup: func(_ *MockAcquirer, h *MockHistory) {
				h.On("Clear", mock.Anything).Once()
			},
			want:   []string{msgCleared},
			active: true,
		},
		{
			name:   "echo",
			input:  "I like *cats*",
			want:   []string{formatEcho("I like *cats*")},
			active: true,
		},
		{
			name:   "ready again echoes",
			input:  "ready",
			want:   []string{formatEcho("ready")},
			active: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acq := &MockAcquirer{}
			hist := &MockHistory{}
			sender := &recordingSender{}
			e, st := newEngine(sender, acq, hist)
			activate(t, e, acq)
			sender.msgs = nil

			if tt.setup != nil {
				tt.setup(acq, hist)
			}
			e.Handle(context.Background(), chat, tt.input)

			assert.Equal(t, tt.want, sender.texts())
			sess, _ := st.Get("42")
			assert.Equal(t, tt.active, sess.Ready)
			assert.Equal(t, tt.active, sess.SessionActive)
			assert.False(t, sess.ReminderSent)
			acq.AssertExpectations(t)
			hist.AssertExpectations(t)
		})
	}
}

func TestEchoEscapesMarkup(t *testing.T) {
	assert.Contains(t, formatEcho("a_b*c"), `a\_b\*c`)
}

func TestSendFailureDoesNotAlterState(t *testing.T) {
	acq := &MockAcquirer{}
	sender := &recordingSender{err: errors.New("platform down")}
	e, st := newEngine(sender, acq, &MockHistory{})

	e.Handle(context.Background(), chat, "hi")
	sess, _ := st.Get("42")
	assert.True(t, sess.ReminderSent)

	acq.On("Acquire", mock.Anything, vocab.DefaultOptions()).Return("**Lucid**", nil).Once()
	e.Handle(context.Background(), chat, "yes")

	sess, _ = st.Get("42")
	assert.True(t, sess.Ready)
	assert.True(t, sess.SessionActive)
	assert.False(t, sess.ReminderSent)
	assert.Len(t, sender.texts(), 3)
}

func TestAcquisitionFailureSendsFallback(t *testing.T) {
	acq := &MockAcquirer{}
	acq.On("Acquire", mock.Anything, vocab.DefaultOptions()).Return("", vocab.ErrNetwork).Once()
	sender := &recordingSender{}
	e, st := newEngine(sender, acq, &MockHistory{})

	e.Handle(context.Background(), chat, "ready")

	assert.Equal(t, []string{msgGreeting, msgDailyFallback}, sender.texts())
	sess, _ := st.Get("42")
	assert.True(t, sess.Ready)
}

func TestReminderImpliesNotReady(t *testing.T) {
	inputs := []string{"hi", "hi", "ready", "help", "new", "stats", "clear", "x", "reset", "y", "z", "yes", "reset"}

	acq := &MockAcquirer{}
	acq.On("Acquire", mock.Anything, mock.Anything).Return("**Lucid**", nil)
	hist := &MockHistory{}
	hist.On("Stats", mock.Anything).Return(0, nil)
	hist.On("Clear", mock.Anything)
	e, st := newEngine(&recordingSender{}, acq, hist)

	for _, in := range inputs {
		e.Handle(context.Background(), chat, in)
		sess, ok := st.Get("42")
		require.True(t, ok)
		if sess.ReminderSent {
			assert.False(t, sess.Ready, "after %q", in)
		}
	}
}

func TestEveryMessageTouchesSession(t *testing.T) {
	e, st := newEngine(&recordingSender{}, &MockAcquirer{}, &MockHistory{})
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	e.Handle(context.Background(), chat, "hi")
	now = now.Add(time.Minute)
	e.Handle(context.Background(), chat, "still silent")

	sess, _ := st.Get("42")
	assert.Equal(t, now, sess.LastInteraction)
}
