package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/vocabot/internal/domain"
	"github.com/ashureev/vocabot/internal/store"
)

type failingStore struct {
	mu        sync.Mutex
	loadErr   error
	saveErr   error
	saveCalls int
}

func (f *failingStore) Load(context.Context) (*domain.Ledger, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return domain.NewLedger(), nil
}

func (f *failingStore) Save(context.Context, *domain.Ledger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	return f.saveErr
}

func (f *failingStore) Ping(context.Context) error { return nil }
func (f *failingStore) Close() error               { return nil }

func TestOpenFallsBackToEmptyOnLoadError(t *testing.T) {
	l := Open(context.Background(), &failingStore{loadErr: errors.New("corrupt")}, nil)
	assert.Equal(t, 0, l.Len())
}

func TestRecordPersistsAndSurvivesReload(t *testing.T) {
	ctx := context.Background()
	s := store.NewJSONFile(filepath.Join(t.TempDir(), "word_history.json"))
	l := Open(ctx, s, nil)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l.Record(ctx, []string{"cobalt", "denim"}, 2, at)

	reloaded := Open(ctx, s, nil)
	if diff := cmp.Diff(l.Snapshot(), reloaded.Snapshot()); diff != "" {
		t.Fatalf("reloaded ledger differs (-mem +disk):\n%s", diff)
	}
	total, recent := reloaded.Stats(5)
	assert.Equal(t, 2, total)
	require.Len(t, recent, 2)
	assert.Equal(t, "denim", recent[0].Word)
	assert.Equal(t, 2, recent[0].Attempt)
}

func TestClearPersistsEmptyLedger(t *testing.T) {
	ctx := context.Background()
	s := store.NewJSONFile(filepath.Join(t.TempDir(), "word_history.json"))
	l := Open(ctx, s, nil)
	l.Record(ctx, []string{"apple"}, 1, time.Now())

	l.Clear(ctx)

	reloaded := Open(ctx, s, nil)
	assert.Equal(t, 0, reloaded.Len())
	assert.Empty(t, reloaded.Snapshot().Entries)
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{saveErr: errors.New("disk full")}
	l := Open(ctx, fs, nil)

	l.Record(ctx, []string{"apple", "banana"}, 1, time.Now())

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, fs.saveCalls)
	assert.ElementsMatch(t, []string{"apple"}, l.Overlap([]string{"apple", "cherry"}))
}

func TestRecentWordsPrefersLatestEntries(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, &failingStore{}, nil)
	base := time.Now()
	l.Record(ctx, []string{"alpha", "bravo"}, 1, base)
	l.Record(ctx, []string{"charlie"}, 1, base.Add(time.Minute))

	assert.Equal(t, []string{"charlie", "bravo"}, l.RecentWords(2))
	assert.Len(t, l.RecentWords(50), 3)
	assert.Nil(t, l.RecentWords(0))
}

func TestEntryWordsAlwaysInUsedSet(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, &failingStore{}, nil)
	l.Record(ctx, []string{"gamma", "delta"}, 1, time.Now())

	snap := l.Snapshot()
	for _, e := range snap.Entries {
		assert.True(t, snap.Contains(e.Word), "entry %q missing from used set", e.Word)
	}
}

func TestRecordAfterUnreadableDateKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "word_history.json")
	raw := `{"used_words":["apple","banana","cherry"],` +
		`"word_history":[{"word":"apple","date":"2024-03-09 14:05","attempt":1}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	l := Open(ctx, store.NewJSONFile(path), nil)
	require.Equal(t, 3, l.Len())

	l.Record(ctx, []string{"denim"}, 1, time.Now())

	reloaded := Open(ctx, store.NewJSONFile(path), nil)
	assert.Equal(t, 4, reloaded.Len())
	snap := reloaded.Snapshot()
	for _, w := range []string{"apple", "banana", "cherry", "denim"} {
		assert.True(t, snap.Contains(w), w)
	}
}
