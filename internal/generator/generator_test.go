package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/kingfisher/internal/history"
	"github.com/wolfeidau/kingfisher/internal/kv"
	"github.com/wolfeidau/kingfisher/internal/qr"
)

type failingEncoder struct{}

func (failingEncoder) Encode(string, int, qr.Level) (*qr.Image, error) {
	return nil, errors.New("data too long")
}

func newGenerator(enc qr.Encoder) (*Generator, *history.Store) {
	store := history.New(kv.NewMemoryStore())
	return New(enc, store), store
}

func TestGenerate(t *testing.T) {
	g, store := newGenerator(qr.NewEncoder(true))

	res, err := g.Generate(context.Background(), Request{Text: "  héllo wörld  ", Size: 300, Level: qr.LevelH})
	require.NoError(t, err)

	require.Equal(t, "héllo wörld", res.Text)
	require.Equal(t, 11, res.Characters)
	require.Equal(t, 300, res.Image.Size)
	require.Equal(t, qr.LevelH, res.Image.Level)
	require.NotEmpty(t, res.Image.PNG)

	entries := store.List()
	require.Len(t, entries, 1)
	require.Equal(t, "héllo wörld", entries[0].Text)
	require.Equal(t, res.Entry, entries[0])
}

func TestGenerate_Defaults(t *testing.T) {
	g, _ := newGenerator(qr.NewEncoder(false))

	res, err := g.Generate(context.Background(), Request{Text: "x"})
	require.NoError(t, err)
	require.Equal(t, qr.DefaultSize, res.Image.Size)
	require.Equal(t, qr.DefaultLevel, res.Image.Level)

	res, err = g.Generate(context.Background(), Request{Text: "x", Size: 9000})
	require.NoError(t, err)
	require.Equal(t, qr.MaxSize, res.Image.Size)
}

func TestGenerate_EmptyText(t *testing.T) {
	g, store := newGenerator(qr.NewEncoder(false))

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := g.Generate(context.Background(), Request{Text: text})
		require.ErrorIs(t, err, ErrEmptyText)
	}
	require.Zero(t, store.Len())
}

func TestGenerate_EncoderFailureSkipsHistory(t *testing.T) {
	g, store := newGenerator(failingEncoder{})

	_, err := g.Generate(context.Background(), Request{Text: "hello"})
	require.Error(t, err)
	require.Zero(t, store.Len())
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	g, store := newGenerator(qr.NewEncoder(false))

	for _, text := range []string{"first", "second", "third"} {
		_, err := g.Generate(ctx, Request{Text: text})
		require.NoError(t, err)
	}

	res, err := g.Replay(ctx, 2, 128, qr.LevelL)
	require.NoError(t, err)
	require.Equal(t, "first", res.Text)
	require.Equal(t, qr.LevelL, res.Image.Level)

	var texts []string
	for _, e := range store.List() {
		texts = append(texts, e.Text)
	}
	require.Equal(t, []string{"first", "third", "second", "first"}, texts)

	_, err = g.Replay(ctx, 10, 0, "")
	require.ErrorIs(t, err, history.ErrEntryNotFound)
}
