// Package geminitest provides an in-memory gemini.Models for tests of the
// layers above the generation client.
package geminitest

import (
	"context"
	"slices"
	"sync"

	"google.golang.org/genai"

	"affiliate-studio/internal/gemini"
)

// PNG is a tiny payload returned as the generated image by default.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Models answers image requests with Image, text requests with Text and
// video requests with a finished operation carrying Video. Err, when set,
// fails every call.
type Models struct {
	mu sync.Mutex

	Image     []byte
	ImageMIME string
	Text      string
	Sources   []gemini.Source
	Video     []byte
	Err       error

	contentCalls int
	videoCalls   int
	keys         []string
}

func New() *Models {
	return &Models{
		Image:     PNG,
		ImageMIME: "image/png",
		Text:      "generated copy",
		Video:     []byte("mp4"),
	}
}

// Factory records the API key each client was built with.
func (m *Models) Factory() gemini.ModelsFactory {
	return func(_ context.Context, apiKey string) (gemini.Models, error) {
		m.mu.Lock()
		m.keys = append(m.keys, apiKey)
		m.mu.Unlock()
		return m, nil
	}
}

func (m *Models) GenerateContent(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentCalls++
	if m.Err != nil {
		return nil, m.Err
	}

	parts := []*genai.Part{genai.NewPartFromText(m.Text)}
	if config != nil && slices.Contains(config.ResponseModalities, "IMAGE") {
		parts = append(parts, genai.NewPartFromBytes(m.Image, m.ImageMIME))
	}

	cand := &genai.Candidate{Content: genai.NewContentFromParts(parts, genai.RoleModel)}
	if len(m.Sources) > 0 {
		meta := &genai.GroundingMetadata{}
		for _, s := range m.Sources {
			meta.GroundingChunks = append(meta.GroundingChunks, &genai.GroundingChunk{
				Web: &genai.GroundingChunkWeb{URI: s.URI, Title: s.Title},
			})
		}
		cand.GroundingMetadata = meta
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{cand}}, nil
}

func (m *Models) GenerateVideos(context.Context, string, string, *genai.Image, *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &genai.GenerateVideosOperation{
		Name: "operations/test",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{
				Video: &genai.Video{VideoBytes: m.Video, MIMEType: "video/mp4"},
			}},
		},
	}, nil
}

func (m *Models) GetVideosOperation(_ context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return op, nil
}

// Calls reports how many content and video requests reached the fake.
func (m *Models) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentCalls + m.videoCalls
}

// Keys lists the API keys seen by Factory, in order.
func (m *Models) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}
