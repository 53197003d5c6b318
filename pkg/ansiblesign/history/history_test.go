package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	j := openTemp(t)

	e, err := j.Record(Entry{Operation: OpSign, Root: "/proj", Outcome: "success"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.True(t, e.Succeeded())

	got, err := j.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "/proj", got.Root)
	assert.Equal(t, OpSign, got.Operation)
}

func TestListNewestFirst(t *testing.T) {
	j := openTemp(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, root := range []string{"first", "second", "third"} {
		_, err := j.Record(Entry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Operation: OpVerify,
			Root:      root,
			Outcome:   "success",
		})
		require.NoError(t, err)
	}

	entries, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].Root)
	assert.Equal(t, "second", entries[1].Root)
	assert.Equal(t, "first", entries[2].Root)

	limited, err := j.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "third", limited[0].Root)
}

func TestListEmpty(t *testing.T) {
	j := openTemp(t)

	entries, err := j.List(10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestGetUnknown(t *testing.T) {
	j := openTemp(t)

	_, err := j.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = j.Get("")
	assert.Error(t, err)
}

func TestCleanup(t *testing.T) {
	j := openTemp(t)

	old, err := j.Record(Entry{Timestamp: time.Now().AddDate(0, 0, -40), Operation: OpSign, Outcome: "success"})
	require.NoError(t, err)
	recent, err := j.Record(Entry{Operation: OpVerify, Outcome: "checksum_mismatch"})
	require.NoError(t, err)

	removed, err := j.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = j.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := j.Get(recent.ID)
	require.NoError(t, err)
	assert.False(t, got.Succeeded())

	removed, err = j.Cleanup(0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := j.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenInMemory(t *testing.T) {
	j, err := OpenInMemory()
	require.NoError(t, err)
	defer j.Close()

	_, err = j.Record(Entry{Operation: OpChecksum, Outcome: "success"})
	require.NoError(t, err)

	entries, err := j.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
