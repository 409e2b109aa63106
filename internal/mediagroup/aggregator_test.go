package mediagroup

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu     sync.Mutex
	albums []Album
	done   chan struct{}
}

func newCollector() *collector {
	return &collector{done: make(chan struct{}, 8)}
}

func (c *collector) flush(a Album) {
	c.mu.Lock()
	c.albums = append(c.albums, a)
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *collector) snapshot() []Album {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Album(nil), c.albums...)
}

func TestAlbumFlushesAfterDebounce(t *testing.T) {
	c := newCollector()
	agg := New(Options{Debounce: 20 * time.Millisecond, MaxFiles: 3, OnFlush: c.flush})

	for _, id := range []string{"f1", "f2", "f3", "f4"} {
		require.True(t, agg.Add(Photo{ChatID: 7, MediaGroupID: "g", FileID: id}))
	}
	agg.Add(Photo{ChatID: 7, MediaGroupID: "g", FileID: "f5", Caption: "ugc"})

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("album never flushed")
	}

	albums := c.snapshot()
	require.Len(t, albums, 1)
	assert.Equal(t, []string{"f1", "f2", "f3"}, albums[0].FileIDs)
	assert.Equal(t, 2, albums[0].Dropped)
	assert.Equal(t, "ugc", albums[0].Caption)
	assert.Equal(t, 0, agg.Pending())
}

func TestAddIgnoresSinglePhotos(t *testing.T) {
	agg := New(Options{})
	assert.False(t, agg.Add(Photo{ChatID: 1, FileID: "f"}))
	assert.False(t, agg.Add(Photo{ChatID: 1, MediaGroupID: "g"}))
	assert.Equal(t, 0, agg.Pending())
}

func TestStopFlushesPending(t *testing.T) {
	c := newCollector()
	agg := New(Options{Debounce: time.Hour, OnFlush: c.flush})

	agg.Add(Photo{ChatID: 1, MediaGroupID: "a", FileID: "x"})
	agg.Add(Photo{ChatID: 2, MediaGroupID: "a", FileID: "y"})
	assert.Equal(t, 2, agg.Pending())

	agg.Stop()

	assert.Len(t, c.snapshot(), 2)
	assert.False(t, agg.Add(Photo{ChatID: 1, MediaGroupID: "b", FileID: "z"}))
}
