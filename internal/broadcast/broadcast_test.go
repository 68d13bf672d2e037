package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/vocabot/internal/domain"
	"github.com/ashureev/vocabot/internal/metrics"
	"github.com/ashureev/vocabot/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
	err   error
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chatID)
	f.texts = append(f.texts, text)
	return f.err
}

func TestRunResetsOnlyIdleSessions(t *testing.T) {
	st := session.NewStore(nil)
	st.Update("active", func(s *domain.Session) { s.Activate() })
	st.Update("waiting", func(s *domain.Session) { s.ReminderSent = true })

	sender := &fakeSender{}
	b := New(st, sender, 99, nil, nil)

	require.NoError(t, b.Run(context.Background()))

	active, _ := st.Get("active")
	assert.True(t, active.Ready)
	assert.True(t, active.SessionActive)

	waiting, _ := st.Get("waiting")
	assert.False(t, waiting.Ready)
	assert.False(t, waiting.ReminderSent)

	assert.Equal(t, []int64{99}, sender.chats)
	assert.Equal(t, []string{session.InvitationMessage}, sender.texts)
}

func TestRunReportsSendFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	st := session.NewStore(nil)
	st.Update("waiting", func(s *domain.Session) { s.ReminderSent = true })
	b := New(st, &fakeSender{err: errors.New("chat not found")}, 99, m, nil)

	err := b.Run(context.Background())

	assert.Error(t, err)
	waiting, _ := st.Get("waiting")
	assert.False(t, waiting.ReminderSent)

	expected := `
# HELP vocabot_broadcasts_total Daily invitation broadcasts by result.
# TYPE vocabot_broadcasts_total counter
vocabot_broadcasts_total{result="error"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "vocabot_broadcasts_total"))
}

func TestCronSpec(t *testing.T) {
	spec, err := CronSpec(SchedulerConfig{DailyTime: "13:38"})
	require.NoError(t, err)
	assert.Equal(t, "38 13 * * *", spec)

	spec, err = CronSpec(SchedulerConfig{DailyTime: "bogus", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, DebugSchedule, spec)

	_, err = NewScheduler(nil, SchedulerConfig{DailyTime: "25:00"}, nil)
	assert.Error(t, err)
}

type countingJob struct {
	mu   sync.Mutex
	runs int
}

func (j *countingJob) Run(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return nil
}

func TestSchedulerStartAndStop(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	s, err := NewScheduler(&countingJob{}, SchedulerConfig{DailyTime: "13:38", Location: loc}, nil)
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, 5*time.Second, 10*time.Millisecond)
	next := s.Next().In(loc)
	assert.Equal(t, 13, next.Hour())
	assert.Equal(t, 38, next.Minute())
	assert.True(t, next.After(time.Now()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
