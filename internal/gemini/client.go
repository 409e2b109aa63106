package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"affiliate-studio/internal/fault"
)

// Models is the slice of the genai SDK the client talks to.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

// ModelsFactory builds a Models bound to one API key.
type ModelsFactory func(ctx context.Context, apiKey string) (Models, error)

// KeySource hands out the API key for the next request.
type KeySource interface {
	APIKey() (string, bool)
}

type StaticKey string

func (k StaticKey) APIKey() (string, bool) {
	key := strings.TrimSpace(string(k))
	return key, key != ""
}

type Options struct {
	Keys         KeySource
	NewModels    ModelsFactory
	BaseURL      string
	APIVersion   string
	HTTPClient   *http.Client
	PollInterval time.Duration
	Logger       *slog.Logger
}

type Client struct {
	keys         KeySource
	newModels    ModelsFactory
	pollInterval time.Duration
	logger       *slog.Logger

	// One SDK client, rebuilt when the resolved key changes.
	mu     sync.Mutex
	key    string
	models Models
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	keys := opts.Keys
	if keys == nil {
		keys = StaticKey("")
	}

	newModels := opts.NewModels
	if newModels == nil {
		newModels = SDKModels(opts.HTTPClient, opts.BaseURL, opts.APIVersion)
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = 10 * time.Second
	}

	return &Client{
		keys:         keys,
		newModels:    newModels,
		pollInterval: poll,
		logger:       logger,
	}
}

// SDKModels returns a factory backed by genai.NewClient on the Gemini API
// backend.
func SDKModels(httpClient *http.Client, baseURL, apiVersion string) ModelsFactory {
	return func(ctx context.Context, apiKey string) (Models, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    strings.TrimSpace(baseURL),
				APIVersion: strings.TrimSpace(apiVersion),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		return sdkModels{client: client}, nil
	}
}

type sdkModels struct {
	client *genai.Client
}

func (m sdkModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.client.Models.GenerateContent(ctx, model, contents, config)
}

func (m sdkModels) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return m.client.Models.GenerateVideos(ctx, model, prompt, image, config)
}

func (m sdkModels) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return m.client.Operations.GetVideosOperation(ctx, op, nil)
}

// modelsFor reads the key fresh on every call so a key change takes effect
// on the next request.
func (c *Client) modelsFor(ctx context.Context, op string) (Models, error) {
	key, ok := c.keys.APIKey()
	if !ok {
		return nil, fault.MissingCredential(op)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.models != nil && c.key == key {
		return c.models, nil
	}
	m, err := c.newModels(ctx, key)
	if err != nil {
		return nil, fault.New(fault.Configuration, op, err)
	}
	c.key, c.models = key, m
	return m, nil
}

// GenerateImage issues one image request and returns the first inline image
// as a data URI.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	const op = "gemini.GenerateImage"

	if len(req.Subjects) == 0 && req.Reference == nil && strings.TrimSpace(req.Instruction) == "" {
		return "", fault.Validationf(op, "nothing to send")
	}

	models, err := c.modelsFor(ctx, op)
	if err != nil {
		return "", err
	}

	ratio := req.AspectRatio
	if ratio == "" {
		ratio = Square
	}
	imageConfig := &genai.ImageConfig{AspectRatio: string(ratio)}
	if req.Quality.IsPro() {
		imageConfig.ImageSize = string(req.Quality)
	}

	model := ModelForQuality(req.Quality)
	contents := []*genai.Content{genai.NewContentFromParts(imageParts(req), genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig:        imageConfig,
	}

	start := time.Now()
	resp, err := models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		c.logger.Warn("gemini image request failed", "model", model, "quality", string(req.Quality), "error", err)
		return "", fault.Classify(op, err, req.Quality.IsPro())
	}

	dataURI, ok := firstInlineImage(resp)
	if !ok {
		c.logger.Warn("gemini returned no image", "model", model, "text", truncate(responseText(resp), 200))
		return "", fault.NoImage(op)
	}

	c.logger.Debug("gemini image ready", "model", model, "ratio", string(ratio), "took", time.Since(start))
	return dataURI, nil
}

func imageParts(req ImageRequest) []*genai.Part {
	parts := make([]*genai.Part, 0, len(req.Subjects)+4)
	if len(req.Subjects) > 0 {
		parts = append(parts, genai.NewPartFromText("SOURCE PRODUCT IMAGES:"))
		for _, img := range req.Subjects {
			parts = append(parts, inlinePart(img))
		}
	}
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		parts = append(parts, genai.NewPartFromText("STYLE REFERENCE:"), inlinePart(*req.Reference))
	}
	if text := strings.TrimSpace(req.Instruction); text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	return parts
}

func inlinePart(img ImageInput) *genai.Part {
	mimeType := strings.TrimSpace(img.MIMEType)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return genai.NewPartFromBytes(img.Data, mimeType)
}

func firstInlineImage(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", false
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		mimeType := p.InlineData.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return DataURI(mimeType, p.InlineData.Data), true
	}
	return "", false
}

// GenerateText returns the aggregated response text for a copywriting or
// analysis prompt.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	const op = "gemini.GenerateText"

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fault.Validationf(op, "prompt is empty")
	}

	models, err := c.modelsFor(ctx, op)
	if err != nil {
		return "", err
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, inlinePart(img))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	resp, err := models.GenerateContent(ctx, ModelText, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		c.logger.Warn("gemini text request failed", "error", err)
		return "", fault.Classify(op, err, false)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", fault.New(fault.EmptyResult, op, fault.ErrNoText)
	}
	return text, nil
}

// AnalyzeTrends runs a search-grounded text request and returns the answer
// with its cited sources, deduplicated by URI in citation order.
func (c *Client) AnalyzeTrends(ctx context.Context, query string) (Grounded, error) {
	const op = "gemini.AnalyzeTrends"

	query = strings.TrimSpace(query)
	if query == "" {
		return Grounded{}, fault.Validationf(op, "query is empty")
	}

	models, err := c.modelsFor(ctx, op)
	if err != nil {
		return Grounded{}, err
	}

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	resp, err := models.GenerateContent(ctx, ModelText, []*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}, config)
	if err != nil {
		c.logger.Warn("gemini trends request failed", "error", err)
		return Grounded{}, fault.Classify(op, err, false)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return Grounded{}, fault.New(fault.EmptyResult, op, fault.ErrNoText)
	}
	return Grounded{Text: text, Sources: groundingSources(resp)}, nil
}

func groundingSources(resp *genai.GenerateContentResponse) []Source {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(meta.GroundingChunks))
	var sources []Source
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if _, ok := seen[chunk.Web.URI]; ok {
			continue
		}
		seen[chunk.Web.URI] = struct{}{}
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		sources = append(sources, Source{URI: chunk.Web.URI, Title: title})
	}
	return sources
}

// GenerateVideo starts a video operation and polls it until done.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	const op = "gemini.GenerateVideo"

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fault.Validationf(op, "prompt is empty")
	}

	models, err := c.modelsFor(ctx, op)
	if err != nil {
		return "", err
	}

	ratio := req.AspectRatio
	if ratio == "" || ratio == Square {
		// Veo renders landscape or portrait only.
		ratio = Landscape
	}

	var image *genai.Image
	if req.Image != nil && len(req.Image.Data) > 0 {
		image = &genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType}
	}

	operation, err := models.GenerateVideos(ctx, ModelVideo, prompt, image, &genai.GenerateVideosConfig{
		AspectRatio:    string(ratio),
		NumberOfVideos: 1,
	})
	if err != nil {
		c.logger.Warn("gemini video request failed", "error", err)
		return "", fault.Classify(op, err, false)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for operation != nil && !operation.Done {
		c.logger.Debug("waiting for video", "operation", operation.Name)
		select {
		case <-ctx.Done():
			return "", fault.New(fault.Transport, op, ctx.Err())
		case <-ticker.C:
		}
		operation, err = models.GetVideosOperation(ctx, operation)
		if err != nil {
			return "", fault.Classify(op, err, false)
		}
	}

	if operation == nil {
		return "", fault.New(fault.EmptyResult, op, fault.ErrNoVideo)
	}
	if len(operation.Error) > 0 {
		return "", fault.Classify(op, fmt.Errorf("video operation failed: %v", operation.Error), false)
	}
	if operation.Response == nil || len(operation.Response.GeneratedVideos) == 0 {
		return "", fault.New(fault.EmptyResult, op, fault.ErrNoVideo)
	}

	video := operation.Response.GeneratedVideos[0].Video
	switch {
	case video == nil:
		return "", fault.New(fault.EmptyResult, op, fault.ErrNoVideo)
	case len(video.VideoBytes) > 0:
		mimeType := video.MIMEType
		if mimeType == "" {
			mimeType = "video/mp4"
		}
		return DataURI(mimeType, video.VideoBytes), nil
	case video.URI != "":
		return video.URI, nil
	}
	return "", fault.New(fault.EmptyResult, op, fault.ErrNoVideo)
}

func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a base64 data URI into its bytes and MIME type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", errors.New("not a data URI")
	}
	idx := strings.IndexByte(uri, ',')
	if idx < 0 {
		return nil, "", errors.New("data URI has no payload")
	}
	meta := uri[len("data:"):idx]
	mimeType, _, _ := strings.Cut(meta, ";")
	data, err := base64.StdEncoding.DecodeString(uri[idx+1:])
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI: %w", err)
	}
	return data, mimeType, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
