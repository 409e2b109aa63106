package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"affiliate-studio/internal/batch"
	"affiliate-studio/internal/credential"
	"affiliate-studio/internal/fault"
	"affiliate-studio/internal/gemini"
	"affiliate-studio/internal/history"
	"affiliate-studio/internal/localstore"
	"affiliate-studio/internal/media"
)

type fakeModels struct {
	mu     sync.Mutex
	models []string
	texts  []string

	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	parts := contents[0].Parts
	f.texts = append(f.texts, parts[len(parts)-1].Text)
	return f.resp, f.err
}

func (f *fakeModels) GenerateVideos(context.Context, string, string, *genai.Image, *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return &genai.GenerateVideosOperation{Done: true, Response: &genai.GenerateVideosResponse{
		GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: "https://files.example/v.mp4"}}},
	}}, nil
}

func (f *fakeModels) GetVideosOperation(_ context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return op, nil
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.models)
}

type harness struct {
	svc     *Service
	models  *fakeModels
	kv      *localstore.Store
	history *history.Store
}

func newHarness(t *testing.T, envKey string, models *fakeModels) *harness {
	t.Helper()

	kv, err := localstore.Open(localstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	creds := credential.NewResolver(credential.Options{Store: kv, EnvKey: envKey})
	client := gemini.New(gemini.Options{
		Keys: creds,
		NewModels: func(context.Context, string) (gemini.Models, error) {
			return models, nil
		},
	})
	hist := history.Open(kv, history.Options{})

	return &harness{
		svc: New(Options{
			Generator:   client,
			Credentials: creds,
			History:     hist,
		}),
		models:  models,
		kv:      kv,
		history: hist,
	}
}

func pngResponse() *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromBytes([]byte("\x89PNG"), "image/png")}},
		}},
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(text)}},
		}},
	}
}

var twoProducts = []media.File{
	{Name: "front.jpg", MIMEType: "image/jpeg", Data: []byte("jpeg-1")},
	{Name: "back.jpg", MIMEType: "image/jpeg", Data: []byte("jpeg-2")},
}

func TestGenerateStandardFrontView(t *testing.T) {
	h := newHarness(t, "env-key-123456", &fakeModels{resp: pngResponse()})

	out, err := h.svc.Generate(context.Background(), GenerateInput{
		Subjects: twoProducts,
		Category: "commercial",
		Mode:     "product",
		Angle:    "Front View",
		Quality:  "STANDARD",
	})
	require.NoError(t, err)

	urls := out.URLs()
	require.Len(t, urls, 1)
	assert.True(t, strings.HasPrefix(urls[0], "data:image/png;base64,"))

	assert.Equal(t, []string{gemini.ModelFlashImage}, h.models.models)
	assert.Contains(t, h.models.texts[0], "SHOT: Front View.")

	items := h.history.List()
	require.Len(t, items, 1)
	assert.Equal(t, "Front View", items[0].Angle)
	assert.Equal(t, "product", items[0].Mode)
	assert.Equal(t, "commercial", items[0].Category)
	assert.Equal(t, urls[0], items[0].URL)
}

func TestEntitlementAndConfigurationMessagesDiffer(t *testing.T) {
	notFound := genai.APIError{Code: 404, Message: "models/gemini-3-pro-image-preview is not found for API version v1beta", Status: "NOT_FOUND"}
	paid := newHarness(t, "free-tier-key-1", &fakeModels{err: notFound})

	_, err := paid.svc.Generate(context.Background(), GenerateInput{
		Subjects: twoProducts,
		Quality:  "ULTRA_HD_4K",
	})
	require.Error(t, err)
	entitlement := paid.svc.Present(err)
	assert.Equal(t, "entitlement", entitlement.Kind)
	assert.Equal(t, fault.RemedyLowerQuality, entitlement.Remedy)
	assert.Equal(t, []string{gemini.ModelProImage}, paid.models.models)

	unconfigured := newHarness(t, "", &fakeModels{resp: pngResponse()})
	_, err = unconfigured.svc.Generate(context.Background(), GenerateInput{
		Subjects: twoProducts,
		Quality:  "ULTRA_HD_4K",
	})
	require.Error(t, err)
	configuration := unconfigured.svc.Present(err)
	assert.Equal(t, "configuration", configuration.Kind)
	assert.True(t, configuration.Persistent)
	assert.Equal(t, fault.RemedyOpenPicker, configuration.Remedy)
	assert.Zero(t, unconfigured.models.calls())

	assert.NotEqual(t, entitlement.Message, configuration.Message)
	assert.Empty(t, paid.history.List())
}

func TestHistoryDeleteAndClearThroughService(t *testing.T) {
	h := newHarness(t, "env-key-123456", &fakeModels{resp: pngResponse()})

	out, err := h.svc.Generate(context.Background(), GenerateInput{
		Subjects: twoProducts,
		Angles:   []string{"ecu", "fs", "d3q"},
	})
	require.NoError(t, err)
	require.Len(t, out.Items, 3)

	list := h.svc.History().List()
	assert.Equal(t, []string{"ECU", "FS", "D-3Q"}, angles(list))

	require.True(t, h.svc.History().Delete(list[1].ID))
	after := h.svc.History().List()
	assert.Equal(t, []history.Item{list[0], list[2]}, after)

	h.svc.History().Clear()
	assert.Empty(t, h.svc.History().List())
	_, err = h.kv.Get(history.DefaultKey)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func angles(items []history.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Angle
	}
	return out
}

func TestGenerateValidatesBeforeNetwork(t *testing.T) {
	models := &fakeModels{resp: pngResponse()}
	h := newHarness(t, "env-key-123456", models)
	ctx := context.Background()

	tests := []struct {
		name string
		in   GenerateInput
	}{
		{"no subject", GenerateInput{Category: "commercial"}},
		{"empty file", GenerateInput{Subjects: []media.File{{Name: "x"}}}},
		{"too many", GenerateInput{Subjects: append(append([]media.File{}, twoProducts...), twoProducts[0], twoProducts[1], twoProducts[0])}},
		{"bad quality", GenerateInput{Subjects: twoProducts, Quality: "8K"}},
		{"bad ratio", GenerateInput{Subjects: twoProducts, AspectRatio: "4:3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Generate(ctx, tt.in)
			assert.True(t, fault.Is(err, fault.Validation), "got %v", err)
			assert.Equal(t, "fix-input", string(h.svc.Present(err).Remedy))
		})
	}
	assert.Zero(t, models.calls())

	// Human studio runs without a product photo.
	_, err := h.svc.Generate(ctx, GenerateInput{Category: "human"})
	require.NoError(t, err)
	assert.Equal(t, 1, models.calls())
}

func TestGenerateFailedBatchRecordsNothing(t *testing.T) {
	h := newHarness(t, "env-key-123456", &fakeModels{resp: textResponse("sorry, text only")})

	var progress []batch.Result
	seq := batch.Sequential
	_, err := h.svc.Generate(context.Background(), GenerateInput{
		Subjects:  twoProducts,
		Angles:    []string{"front", "side"},
		BatchMode: &seq,
		OnResult:  func(r batch.Result) { progress = append(progress, r) },
	})

	assert.True(t, fault.Is(err, fault.EmptyResult))
	assert.Equal(t, fault.RemedyRetry, h.svc.Present(err).Remedy)
	assert.Empty(t, progress)
	assert.Equal(t, 1, h.models.calls())
	assert.Empty(t, h.history.List())
}

func TestGenerateConcurrentBatchKeepsAngleOrder(t *testing.T) {
	h := newHarness(t, "env-key-123456", &fakeModels{resp: pngResponse()})

	conc := batch.Concurrent
	out, err := h.svc.Generate(context.Background(), GenerateInput{
		Subjects:  twoProducts,
		Angles:    []string{"top", "low", "pov", "front"},
		BatchMode: &conc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Top Down", "Low Angle Hero", "Hand POV", "Front View"}, angles(out.Items))
	assert.Equal(t, 4, h.models.calls())
}

func TestCopywriteRendersMarkdown(t *testing.T) {
	h := newHarness(t, "env-key-123456", &fakeModels{resp: textResponse("**Glow up** now\n\n- cheap\n- viral")})

	got, err := h.svc.Copywrite(context.Background(), twoProducts[0], "")
	require.NoError(t, err)
	assert.Equal(t, "caption", got.Kind)
	assert.Contains(t, got.HTML, "<strong>Glow up</strong>")
	assert.Contains(t, got.HTML, "<li>viral</li>")
	assert.Contains(t, h.models.texts[0], "Instagram/TikTok caption")

	_, err = h.svc.Copywrite(context.Background(), media.File{}, "caption")
	assert.True(t, fault.Is(err, fault.Validation))
}

func TestTrendsAreCachedPerQuery(t *testing.T) {
	h := newHarness(t, "env-key-123456", &fakeModels{resp: textResponse("Serum is hot")})
	ctx := context.Background()

	first, err := h.svc.Trends(ctx, "Skincare")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "Serum is hot", first.Text)

	second, err := h.svc.Trends(ctx, "  skincare ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, h.models.calls())
}

func TestVideoAddsHistoryItem(t *testing.T) {
	h := newHarness(t, "env-key-123456", &fakeModels{})

	url, err := h.svc.Video(context.Background(), VideoInput{Image: &twoProducts[0], Category: "ads", Prompt: "spin"})
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/v.mp4", url)

	items := h.history.List()
	require.Len(t, items, 1)
	assert.Equal(t, "Video", items[0].Angle)
	assert.Equal(t, "banner", items[0].Mode)
}

func TestKeyManagementNotifiesSubscribers(t *testing.T) {
	h := newHarness(t, "", &fakeModels{resp: pngResponse()})

	var states []credential.State
	stop := h.svc.SubscribeKey(func(s credential.State) { states = append(states, s) })
	defer stop()

	assert.False(t, h.svc.KeyState().Connected)
	require.NoError(t, h.svc.SetKey("manual-key-1234"))
	assert.True(t, h.svc.KeyState().Connected)

	_, err := h.svc.Generate(context.Background(), GenerateInput{Subjects: twoProducts})
	require.NoError(t, err)

	require.NoError(t, h.svc.ClearKey())
	require.Len(t, states, 2)

	_, err = h.svc.OpenKeyPicker(context.Background())
	assert.True(t, fault.Is(err, fault.Validation))
}

func TestPresentNil(t *testing.T) {
	h := newHarness(t, "", &fakeModels{})
	assert.Equal(t, fault.Notice{}, h.svc.Present(nil))
	assert.Equal(t, "transport", h.svc.Present(errors.New("socket closed")).Kind)
}
