// Package session keeps the per-chat generation form of the Telegram bot:
// the selected category/mode/style, output settings and uploaded images.
package session

import (
	"sync"
	"time"

	"affiliate-studio/internal/media"
)

type Form struct {
	Category    string
	Mode        string
	Style       string
	Angle       string
	Angles      []string
	Prompt      string
	Quality     string
	AspectRatio string
	BatchMode   string
}

type Session struct {
	ChatID       int64
	Username     string
	Form         Form
	Subjects     *media.Holder
	Reference    *media.File
	LastActivity time.Time
}

type Options struct {
	MaxUploads int
	// Registry is shared by all holders so preview URLs stay unique.
	Registry *media.Registry
	// Defaults seeds a new chat's form.
	Defaults Form
}

type Store struct {
	mu         sync.Mutex
	sessions   map[int64]*Session
	maxUploads int
	registry   *media.Registry
	defaults   Form
}

func NewStore(opts Options) *Store {
	maxUploads := opts.MaxUploads
	if maxUploads <= 0 {
		maxUploads = 4
	}
	registry := opts.Registry
	if registry == nil {
		registry = media.NewRegistry()
	}

	return &Store{
		sessions:   make(map[int64]*Session),
		maxUploads: maxUploads,
		registry:   registry,
		defaults:   opts.Defaults,
	}
}

// Form returns a copy of the chat's form.
func (s *Store) Form(chatID int64, username string) Form {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID, username)
	sess.LastActivity = time.Now()
	return cloneForm(sess.Form)
}

// Update applies fn to the chat's form under the store lock and returns the
// result.
func (s *Store) Update(chatID int64, username string, fn func(*Form)) Form {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID, username)
	sess.LastActivity = time.Now()
	fn(&sess.Form)
	return cloneForm(sess.Form)
}

// Subjects returns the chat's product image holder.
func (s *Store) Subjects(chatID int64, username string) *media.Holder {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID, username)
	sess.LastActivity = time.Now()
	return sess.Subjects
}

func (s *Store) SetReference(chatID int64, username string, file *media.File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID, username)
	sess.LastActivity = time.Now()
	if file == nil {
		sess.Reference = nil
		return
	}
	ref := *file
	sess.Reference = &ref
}

func (s *Store) Reference(chatID int64) *media.File {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok || sess.Reference == nil {
		return nil
	}
	ref := *sess.Reference
	return &ref
}

// Clear resets the form to defaults and drops uploaded images.
func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[chatID]; ok {
		sess.Form = cloneForm(s.defaults)
		sess.Subjects.Clear()
		sess.Reference = nil
		sess.LastActivity = time.Now()
	}
}

// Prune drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *Store) Prune(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			sess.Subjects.Clear()
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) getOrCreateLocked(chatID int64, username string) *Session {
	if sess, ok := s.sessions[chatID]; ok {
		if sess.Username == "" && username != "" {
			sess.Username = username
		}
		return sess
	}

	sess := &Session{
		ChatID:       chatID,
		Username:     username,
		Form:         cloneForm(s.defaults),
		Subjects:     media.NewHolder(media.Options{MaxFiles: s.maxUploads, Registry: s.registry}),
		LastActivity: time.Now(),
	}
	s.sessions[chatID] = sess
	return sess
}

func cloneForm(f Form) Form {
	if f.Angles != nil {
		f.Angles = append([]string(nil), f.Angles...)
	}
	return f
}
