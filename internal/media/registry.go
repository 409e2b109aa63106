package media

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const blobPrefix = "blob:studio/"

// Registry hands out local preview URLs for uploaded bytes. A URL stays
// resolvable until it is revoked.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]object
}

type object struct {
	data     []byte
	mimeType string
}

func NewRegistry() *Registry {
	return &Registry{objects: make(map[string]object)}
}

func (r *Registry) Create(data []byte, mimeType string) string {
	url := blobPrefix + uuid.NewString()

	r.mu.Lock()
	r.objects[url] = object{data: data, mimeType: mimeType}
	r.mu.Unlock()

	return url
}

func (r *Registry) Open(url string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[url]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.mimeType, true
}

func (r *Registry) Revoke(url string) {
	r.mu.Lock()
	delete(r.objects, url)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Token strips the blob prefix so the URL can be used as a path segment.
func Token(url string) string {
	return strings.TrimPrefix(url, blobPrefix)
}

func URLFromToken(token string) string {
	return blobPrefix + token
}
