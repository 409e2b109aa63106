// Package credential decides which Gemini API key a request uses and lets
// view layers observe when that answer changes.
package credential

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"affiliate-studio/internal/fault"
	"affiliate-studio/internal/localstore"
)

const (
	ManualKeyName = "GEMINI_API_KEY"
	MinKeyLength  = 10
)

type Source string

const (
	SourceNone   Source = ""
	SourceManual Source = "manual"
	SourceEnv    Source = "env"
	SourcePicker Source = "picker"
)

// Picker is a key-selection mechanism offered by the host. It is optional.
type Picker interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	SelectedKey(ctx context.Context) (string, error)
	OpenSelectKey(ctx context.Context) error
}

// KV is where a manually entered key is kept.
type KV interface {
	GetString(key string) (string, error)
	SetString(key, value string) error
	Delete(key string) error
}

type Credential struct {
	Key    string
	Source Source
}

type State struct {
	Source    Source `json:"source"`
	Connected bool   `json:"connected"`
	Masked    string `json:"masked,omitempty"`
	HasPicker bool   `json:"has_picker"`
}

type Options struct {
	Store  KV
	EnvKey string
	Picker Picker
	Logger *slog.Logger
}

type Resolver struct {
	store  KV
	envKey string
	picker Picker
	logger *slog.Logger

	mu     sync.Mutex
	last   State
	nextID int
	subs   map[int]func(State)
}

func NewResolver(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Resolver{
		store:  opts.Store,
		envKey: strings.TrimSpace(opts.EnvKey),
		picker: opts.Picker,
		logger: logger,
		subs:   make(map[int]func(State)),
	}
	r.last = r.compute(context.Background())
	return r
}

// Resolve walks manual key, environment key, host picker; first match wins.
func (r *Resolver) Resolve(ctx context.Context) (Credential, error) {
	if key := r.manualKey(); key != "" {
		return Credential{Key: key, Source: SourceManual}, nil
	}
	if r.envKey != "" {
		return Credential{Key: r.envKey, Source: SourceEnv}, nil
	}
	if r.picker != nil {
		ok, err := r.picker.HasSelectedKey(ctx)
		if err != nil {
			r.logger.Warn("key picker check failed", "error", err)
		}
		if ok {
			key, err := r.picker.SelectedKey(ctx)
			if err != nil {
				r.logger.Warn("key picker read failed", "error", err)
			} else if key = strings.TrimSpace(key); key != "" {
				return Credential{Key: key, Source: SourcePicker}, nil
			}
		}
	}
	return Credential{}, fault.MissingCredential("credential.Resolve")
}

// APIKey lets the resolver act as the generation client's key source.
func (r *Resolver) APIKey() (string, bool) {
	cred, err := r.Resolve(context.Background())
	if err != nil {
		return "", false
	}
	return cred.Key, true
}

func (r *Resolver) SetManualKey(key string) error {
	const op = "credential.SetManualKey"

	key = strings.TrimSpace(key)
	if len(key) < MinKeyLength {
		return fault.Validationf(op, "API key must be at least %d characters", MinKeyLength)
	}
	if r.store == nil {
		return fault.Validationf(op, "no local storage for a manual key")
	}
	if err := r.store.SetString(ManualKeyName, key); err != nil {
		return fault.New(fault.Transport, op, err)
	}
	r.logger.Info("manual API key saved")
	r.Refresh(context.Background())
	return nil
}

func (r *Resolver) ClearManualKey() error {
	if r.store != nil {
		if err := r.store.Delete(ManualKeyName); err != nil {
			return fault.New(fault.Transport, "credential.ClearManualKey", err)
		}
	}
	r.logger.Info("manual API key cleared")
	r.Refresh(context.Background())
	return nil
}

// OpenPicker asks the host to let the user choose a key, then re-resolves.
func (r *Resolver) OpenPicker(ctx context.Context) (State, error) {
	const op = "credential.OpenPicker"

	if r.picker == nil {
		return r.State(), fault.Validationf(op, "no host key picker is available")
	}
	if err := r.picker.OpenSelectKey(ctx); err != nil {
		return r.State(), fault.New(fault.Configuration, op, err)
	}
	return r.Refresh(ctx), nil
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Refresh recomputes the state and notifies subscribers when it changed.
func (r *Resolver) Refresh(ctx context.Context) State {
	next := r.compute(ctx)

	r.mu.Lock()
	changed := next != r.last
	r.last = next
	subs := make([]func(State), 0, len(r.subs))
	if changed {
		for _, fn := range r.subs {
			subs = append(subs, fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn for state changes. The returned func unsubscribes.
func (r *Resolver) Subscribe(fn func(State)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Resolver) compute(ctx context.Context) State {
	st := State{HasPicker: r.picker != nil}
	cred, err := r.Resolve(ctx)
	if err != nil {
		return st
	}
	st.Source = cred.Source
	st.Connected = true
	st.Masked = Mask(cred.Key)
	return st
}

func (r *Resolver) manualKey() string {
	if r.store == nil {
		return ""
	}
	key, err := r.store.GetString(ManualKeyName)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			r.logger.Warn("manual key read failed", "error", err)
		}
		return ""
	}
	return strings.TrimSpace(key)
}

// Mask keeps the first and last four characters.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
