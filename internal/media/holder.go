// Package media holds the images a user selected for one form slot.
package media

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrEmptyFile = errors.New("media: empty file")
	ErrFull      = errors.New("media: slot is full")
)

// File is binary content tagged with its MIME type.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

type UploadedImage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MIMEType   string `json:"mime_type"`
	Size       int    `json:"size"`
	PreviewURL string `json:"preview_url"`

	data []byte
}

func (u UploadedImage) File() File {
	return File{Name: u.Name, MIMEType: u.MIMEType, Data: u.data}
}

type Options struct {
	MaxFiles int
	Registry *Registry
}

// Holder owns the uploaded images of one slot and their preview URLs.
type Holder struct {
	mu       sync.Mutex
	maxFiles int
	registry *Registry
	items    []UploadedImage
}

func NewHolder(opts Options) *Holder {
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 4
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Holder{maxFiles: maxFiles, registry: registry}
}

func (h *Holder) Add(name, mimeType string, data []byte) (UploadedImage, error) {
	if len(data) == 0 {
		return UploadedImage{}, ErrEmptyFile
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) >= h.maxFiles {
		return UploadedImage{}, fmt.Errorf("%w (max %d)", ErrFull, h.maxFiles)
	}

	img := h.newImageLocked(name, mimeType, data)
	h.items = append(h.items, img)
	return img, nil
}

// Replace drops every current entry and installs files as the new selection.
// Files beyond the slot limit are ignored.
func (h *Holder) Replace(files ...File) []UploadedImage {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.releaseLocked()
	for _, f := range files {
		if len(h.items) >= h.maxFiles {
			break
		}
		if len(f.Data) == 0 {
			continue
		}
		h.items = append(h.items, h.newImageLocked(f.Name, f.MIMEType, f.Data))
	}
	return append([]UploadedImage(nil), h.items...)
}

func (h *Holder) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, img := range h.items {
		if img.ID != id {
			continue
		}
		h.registry.Revoke(img.PreviewURL)
		h.items = append(h.items[:i], h.items[i+1:]...)
		return true
	}
	return false
}

func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseLocked()
}

func (h *Holder) Get(id string) (UploadedImage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, img := range h.items {
		if img.ID == id {
			return img, true
		}
	}
	return UploadedImage{}, false
}

func (h *Holder) List() []UploadedImage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]UploadedImage(nil), h.items...)
}

func (h *Holder) Files() []File {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]File, 0, len(h.items))
	for _, img := range h.items {
		out = append(out, img.File())
	}
	return out
}

func (h *Holder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

func (h *Holder) MaxFiles() int { return h.maxFiles }

func (h *Holder) newImageLocked(name, mimeType string, data []byte) UploadedImage {
	mimeType = DetectMIMEType(mimeType, data)
	return UploadedImage{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		MIMEType:   mimeType,
		Size:       len(data),
		PreviewURL: h.registry.Create(data, mimeType),
		data:       data,
	}
}

// releaseLocked revokes every preview URL before the entries are dropped.
func (h *Holder) releaseLocked() {
	for _, img := range h.items {
		h.registry.Revoke(img.PreviewURL)
	}
	h.items = nil
}

// DetectMIMEType keeps a declared type unless it is empty or generic, then
// sniffs the content and finally falls back to image/jpeg.
func DetectMIMEType(declared string, data []byte) string {
	mimeType := cleanMIME(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = cleanMIME(http.DetectContentType(data))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

func cleanMIME(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ";") {
		value = strings.TrimSpace(strings.SplitN(value, ";", 2)[0])
	}
	return strings.ToLower(value)
}
