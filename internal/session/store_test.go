package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-studio/internal/media"
)

func TestFormDefaultsAndUpdate(t *testing.T) {
	s := NewStore(Options{Defaults: Form{Quality: "1K", AspectRatio: "1:1"}})

	f := s.Form(10, "alice")
	assert.Equal(t, "1K", f.Quality)

	got := s.Update(10, "", func(f *Form) {
		f.Quality = "4K"
		f.Angles = []string{"Front View", "Top View"}
	})
	assert.Equal(t, "4K", got.Quality)

	got.Angles[0] = "mutated"
	assert.Equal(t, []string{"Front View", "Top View"}, s.Form(10, "").Angles)

	// Another chat keeps its own form.
	assert.Equal(t, "1K", s.Form(11, "").Quality)
	assert.Equal(t, 2, s.Len())
}

func TestSubjectsAreCappedPerChat(t *testing.T) {
	s := NewStore(Options{MaxUploads: 2})
	h := s.Subjects(1, "")
	_, err := h.Add("a.png", "image/png", []byte("a"))
	require.NoError(t, err)
	_, err = h.Add("b.png", "image/png", []byte("b"))
	require.NoError(t, err)
	_, err = h.Add("c.png", "image/png", []byte("c"))
	assert.ErrorIs(t, err, media.ErrFull)

	assert.Equal(t, 0, s.Subjects(2, "").Len())
}

func TestClearResetsFormAndMedia(t *testing.T) {
	s := NewStore(Options{Defaults: Form{Style: "clean-studio"}})
	s.Update(5, "", func(f *Form) { f.Style = "neon" })
	_, err := s.Subjects(5, "").Add("a.png", "image/png", []byte("a"))
	require.NoError(t, err)
	s.SetReference(5, "", &media.File{Name: "ref.png", MIMEType: "image/png", Data: []byte("r")})
	require.NotNil(t, s.Reference(5))

	s.Clear(5)

	assert.Equal(t, "clean-studio", s.Form(5, "").Style)
	assert.Equal(t, 0, s.Subjects(5, "").Len())
	assert.Nil(t, s.Reference(5))
}

func TestPrune(t *testing.T) {
	s := NewStore(Options{})
	s.Form(1, "")
	s.Form(2, "")

	assert.Equal(t, 0, s.Prune(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, s.Prune(time.Millisecond))
	assert.Equal(t, 0, s.Len())
}
