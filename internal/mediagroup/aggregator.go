// Package mediagroup collects the photos of a Telegram album, which arrive
// as separate updates sharing a media group id, into one batch.
package mediagroup

import (
	"strconv"
	"sync"
	"time"
)

type Photo struct {
	ChatID       int64
	Username     string
	MediaGroupID string
	Caption      string
	FileID       string
}

// Album is a flushed group. FileIDs keep arrival order and never exceed the
// aggregator's MaxFiles; Dropped counts the photos past that cap.
type Album struct {
	ChatID   int64
	Username string
	Caption  string
	FileIDs  []string
	Dropped  int
}

type Options struct {
	Debounce time.Duration
	MaxFiles int
	OnFlush  func(Album)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	maxFiles int
	onFlush  func(Album)
	pending  map[string]*pendingAlbum
	stopped  bool
}

type pendingAlbum struct {
	album Album
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 4
	}

	return &Aggregator{
		debounce: debounce,
		maxFiles: maxFiles,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pendingAlbum),
	}
}

// Add buffers a photo and restarts the album's debounce timer. It reports
// false when the photo is not part of an album or the aggregator is stopped.
func (a *Aggregator) Add(p Photo) bool {
	if p.MediaGroupID == "" || p.FileID == "" {
		return false
	}

	key := albumKey(p.ChatID, p.MediaGroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return false
	}

	pa, ok := a.pending[key]
	if !ok {
		pa = &pendingAlbum{album: Album{ChatID: p.ChatID, Username: p.Username}}
		a.pending[key] = pa
	}
	if len(pa.album.FileIDs) < a.maxFiles {
		pa.album.FileIDs = append(pa.album.FileIDs, p.FileID)
	} else {
		pa.album.Dropped++
	}
	if p.Caption != "" {
		pa.album.Caption = p.Caption
	}

	if pa.timer != nil {
		pa.timer.Stop()
	}
	pa.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
	return true
}

// Pending reports how many albums are still buffering.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Stop cancels all timers and flushes every buffered album synchronously.
// Later Adds are ignored.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	a.stopped = true
	keys := make([]string, 0, len(a.pending))
	for key, pa := range a.pending {
		if pa.timer != nil {
			pa.timer.Stop()
		}
		keys = append(keys, key)
	}
	a.mu.Unlock()

	for _, key := range keys {
		a.flush(key)
	}
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pa, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	album := pa.album
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(album)
	}
}

func albumKey(chatID int64, mediaGroupID string) string {
	return strconv.FormatInt(chatID, 10) + ":" + mediaGroupID
}
