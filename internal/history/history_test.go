package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/kingfisher/internal/kv"
)

// failingKV fails every operation, like storage that is disabled or full.
type failingKV struct {
	sets int
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("storage disabled")
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	return errors.New("quota exceeded")
}

func (f *failingKV) Close() error { return nil }

type recordingObserver struct {
	changed [][]Entry
	cleared int
}

func (o *recordingObserver) HistoryChanged(entries []Entry) { o.changed = append(o.changed, entries) }
func (o *recordingObserver) HistoryCleared()                { o.cleared++ }

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestStore_RecordBoundsAndOrders(t *testing.T) {
	ctx := context.Background()
	store := New(kv.NewMemoryStore())

	for i := 1; i <= 25; i++ {
		store.Record(ctx, fmt.Sprintf("item-%d", i))

		entries := store.List()
		require.Len(t, entries, min(MaxHistory, i))
		require.Equal(t, fmt.Sprintf("item-%d", i), entries[0].Text, "newest entry must be first")

		for j := 1; j < len(entries); j++ {
			require.Equal(t, fmt.Sprintf("item-%d", i-j), entries[j].Text)
		}
	}
}

func TestStore_CountSinceLastClear(t *testing.T) {
	ctx := context.Background()
	store := New(kv.NewMemoryStore())

	for i := 0; i < 4; i++ {
		store.Record(ctx, "before")
	}
	store.Clear(ctx)
	require.Empty(t, store.List())

	for i := 0; i < 3; i++ {
		store.Record(ctx, "after")
	}
	require.Equal(t, 3, store.Len())
}

func TestStore_ListDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store := New(kv.NewMemoryStore())
	store.Record(ctx, "hello")

	first := store.List()
	first[0].Text = "changed"

	second := store.List()
	require.Equal(t, "hello", second[0].Text)
	require.Equal(t, 1, store.Len())
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()

	store := New(backend, WithClock(fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))))
	store.Load(ctx)
	store.Record(ctx, "first")
	store.Record(ctx, "hello")

	// simulate a restart
	restarted := New(backend)
	restarted.Load(ctx)

	entries := restarted.List()
	require.Len(t, entries, 2)
	require.Equal(t, "hello", entries[0].Text)
	require.Equal(t, "first", entries[1].Text)
	require.True(t, entries[0].CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 2, 0, time.UTC)))
}

func TestStore_PersistedFormat(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()

	store := New(backend, WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 30, 45, 123456789, time.UTC)
	}))
	store.Record(ctx, "https://example.com")

	data, err := backend.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.JSONEq(t, `[{"text":"https://example.com","timestamp":"2024-05-01T12:30:45.123Z"}]`, string(data))

	store.Clear(ctx)
	data, err = backend.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestStore_LoadResilience(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "unparsable", value: "{not json"},
		{name: "wrong shape", value: `{"text":"a"}`},
		{name: "only bad entries", value: `[{"text":"a","timestamp":"yesterday"},"b"]`},
		{name: "null", value: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := kv.NewMemoryStore()
			require.NoError(t, backend.Set(ctx, StorageKey, []byte(tt.value)))

			store := New(backend)
			require.NotPanics(t, func() { store.Load(ctx) })
			require.Empty(t, store.List())
			require.NotNil(t, store.List())
		})
	}

	t.Run("missing", func(t *testing.T) {
		store := New(kv.NewMemoryStore())
		store.Load(context.Background())
		require.Empty(t, store.List())
	})
}

func TestStore_LoadSkipsDamagedEntries(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, StorageKey, []byte(`[
		{"text":"newest","timestamp":"2024-05-01T10:00:00.000Z"},
		{"text":"broken","timestamp":"yesterday"},
		42,
		{"text":"oldest","timestamp":"2024-04-30T09:30:00.000Z"}
	]`)))

	store := New(backend)
	store.Load(ctx)

	got := store.List()
	require.Len(t, got, 2)
	require.Equal(t, "newest", got[0].Text)
	require.Equal(t, "oldest", got[1].Text)
	require.Equal(t, time.Date(2024, 4, 30, 9, 30, 0, 0, time.UTC), got[1].CreatedAt.UTC())
}

func TestStore_LoadTruncatesOversizedLog(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()

	entries := make([]Entry, 0, 15)
	for i := 0; i < 15; i++ {
		entries = append(entries, Entry{Text: fmt.Sprintf("item-%d", i), CreatedAt: time.Now().UTC()})
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, StorageKey, data))

	store := New(backend)
	store.Load(ctx)

	got := store.List()
	require.Len(t, got, MaxHistory)
	require.Equal(t, "item-0", got[0].Text)
	require.Equal(t, "item-9", got[MaxHistory-1].Text)
}

func TestStore_PersistenceFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	backend := &failingKV{}

	store := New(backend)
	store.Load(ctx)
	require.Empty(t, store.List())

	entry := store.Record(ctx, "still works")
	assert.Equal(t, "still works", entry.Text)
	assert.Equal(t, 1, backend.sets, "a write should have been attempted")

	entries := store.List()
	require.Len(t, entries, 1)
	require.Equal(t, "still works", entries[0].Text)

	store.Clear(ctx)
	require.Empty(t, store.List())
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()
	store := New(kv.NewMemoryStore())
	store.Record(ctx, "old")
	store.Record(ctx, "new")

	entry, err := store.Get(0)
	require.NoError(t, err)
	require.Equal(t, "new", entry.Text)

	entry, err = store.Get(1)
	require.NoError(t, err)
	require.Equal(t, "old", entry.Text)

	_, err = store.Get(2)
	require.ErrorIs(t, err, ErrEntryNotFound)

	_, err = store.Get(-1)
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestStore_Observer(t *testing.T) {
	ctx := context.Background()
	observer := &recordingObserver{}
	store := New(kv.NewMemoryStore(), WithObserver(observer))

	store.Record(ctx, "a")
	store.Record(ctx, "b")
	store.Clear(ctx)

	require.Len(t, observer.changed, 2)
	require.Len(t, observer.changed[1], 2)
	require.Equal(t, "b", observer.changed[1][0].Text)
	require.Equal(t, 1, observer.cleared)
}

func TestPreview(t *testing.T) {
	short := "hello"
	require.Equal(t, short, Preview(short))

	exact := string(make([]rune, PreviewLength))
	require.Equal(t, exact, Preview(exact))

	long := "https://example.com/" + string(make([]byte, 100))
	preview := Preview(long)
	require.Len(t, []rune(preview), PreviewLength+3)
	require.Equal(t, "...", preview[len(preview)-3:])

	// multi-byte characters count as one
	emoji := ""
	for i := 0; i < 60; i++ {
		emoji += "é"
	}
	require.Len(t, []rune(Preview(emoji)), PreviewLength+3)
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "seconds", t: now.Add(-30 * time.Second), want: "Just now"},
		{name: "future", t: now.Add(time.Minute), want: "Just now"},
		{name: "minutes", t: now.Add(-5 * time.Minute), want: "5m ago"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3h ago"},
		{name: "days", t: now.Add(-2 * 24 * time.Hour), want: "2d ago"},
		{name: "older", t: now.Add(-10 * 24 * time.Hour), want: now.Add(-10 * 24 * time.Hour).Local().Format("2006-01-02")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatAge(tt.t, now))
		})
	}
}
