// Package studio is the action boundary of the console. Every user action
// (generate, copywrite, trends, video, key management) enters here, is
// validated before any network call, and leaves as a result or a typed
// fault that Present turns into one message.
package studio

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"
	"github.com/yuin/goldmark"
	"golang.org/x/time/rate"

	"affiliate-studio/internal/batch"
	"affiliate-studio/internal/credential"
	"affiliate-studio/internal/fault"
	"affiliate-studio/internal/gemini"
	"affiliate-studio/internal/history"
	"affiliate-studio/internal/media"
	"affiliate-studio/internal/prompt"
)

const MaxSubjects = 4

// Generator is the generation client as the service uses it.
type Generator interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (string, error)
	GenerateText(ctx context.Context, req gemini.TextRequest) (string, error)
	AnalyzeTrends(ctx context.Context, query string) (gemini.Grounded, error)
	GenerateVideo(ctx context.Context, req gemini.VideoRequest) (string, error)
}

type Options struct {
	Generator   Generator
	Credentials *credential.Resolver
	History     *history.Store
	Catalog     *prompt.Catalog

	BatchMode batch.Mode
	Retry     func() backoff.BackOff
	Limiter   *rate.Limiter
	TrendsTTL time.Duration
	Markdown  goldmark.Markdown
	Logger    *slog.Logger
}

type Service struct {
	gen       Generator
	creds     *credential.Resolver
	history   *history.Store
	catalog   *prompt.Catalog
	batchMode batch.Mode
	retry     func() backoff.BackOff
	limiter   *rate.Limiter
	trends    *cache.Cache
	markdown  goldmark.Markdown
	logger    *slog.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = prompt.Default()
	}
	hist := opts.History
	if hist == nil {
		hist = history.Open(nil, history.Options{Logger: logger})
	}
	creds := opts.Credentials
	if creds == nil {
		creds = credential.NewResolver(credential.Options{Logger: logger})
	}
	ttl := opts.TrendsTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	md := opts.Markdown
	if md == nil {
		md = goldmark.New()
	}

	return &Service{
		gen:       opts.Generator,
		creds:     creds,
		history:   hist,
		catalog:   catalog,
		batchMode: opts.BatchMode,
		retry:     opts.Retry,
		limiter:   opts.Limiter,
		trends:    cache.New(ttl, 2*ttl),
		markdown:  md,
		logger:    logger,
	}
}

func (s *Service) Catalog() *prompt.Catalog { return s.catalog }

func (s *Service) History() *history.Store { return s.history }

type GenerateInput struct {
	Subjects  []media.File
	Reference *media.File

	Category string
	Mode     string
	Style    string
	Angle    string
	// Angles turns the request into a batch, one image per angle. Empty
	// means just Angle.
	Angles []string
	Prompt string

	Quality     string
	AspectRatio string
	// BatchMode overrides the service default when set.
	BatchMode *batch.Mode
	OnResult  func(batch.Result)
}

type Outcome struct {
	Items []history.Item `json:"items"`
}

// URLs returns the generated data URIs in angle order.
func (o Outcome) URLs() []string {
	out := make([]string, len(o.Items))
	for i, it := range o.Items {
		out[i] = it.URL
	}
	return out
}

// Generate validates the form, composes one prompt per angle and runs the
// batch. A complete batch is appended to history in angle order; a failed
// batch records nothing.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (Outcome, error) {
	const op = "studio.Generate"

	if _, err := s.creds.Resolve(ctx); err != nil {
		return Outcome{}, err
	}

	quality, err := gemini.ParseQuality(in.Quality)
	if err != nil {
		return Outcome{}, fault.New(fault.Validation, op, err)
	}
	ratio, err := gemini.ParseAspectRatio(in.AspectRatio)
	if err != nil {
		return Outcome{}, fault.New(fault.Validation, op, err)
	}

	subjects := nonEmpty(in.Subjects)
	if len(subjects) == 0 && s.catalog.RequiresSubject(in.Category) {
		return Outcome{}, fault.Validationf(op, "upload at least one product image")
	}
	if len(subjects) > MaxSubjects {
		return Outcome{}, fault.Validationf(op, "at most %d product images per request", MaxSubjects)
	}

	if s.gen == nil {
		return Outcome{}, fault.MissingCredential(op)
	}

	sel := prompt.Selection{
		Category: in.Category,
		Mode:     in.Mode,
		Style:    in.Style,
		Angle:    in.Angle,
		Text:     in.Prompt,
	}
	comps := s.catalog.ComposeAngles(sel, in.Angles)
	labels := make([]string, len(comps))
	for i, c := range comps {
		labels[i] = c.AngleLabel
	}

	req := gemini.ImageRequest{
		Subjects:    toInputs(subjects),
		Reference:   toInput(in.Reference),
		Quality:     quality,
		AspectRatio: ratio,
	}

	mode := s.batchMode
	if in.BatchMode != nil {
		mode = *in.BatchMode
	}

	start := time.Now()
	results, err := batch.Run(ctx, labels, func(ctx context.Context, i int, label string) (string, error) {
		r := req
		r.Instruction = prompt.CoreInstruction(comps[i].System, comps[i].User, label)
		return s.gen.GenerateImage(ctx, r)
	}, batch.Options{
		Mode:     mode,
		OnResult: in.OnResult,
		Retry:    s.retry,
		Limiter:  s.limiter,
		Logger:   s.logger,
	})
	if err != nil {
		s.logger.Warn("generate failed",
			"category", comps[0].Category,
			"mode", comps[0].Mode,
			"quality", string(quality),
			"angles", len(labels),
			"error", err,
		)
		return Outcome{}, err
	}

	items := make([]history.Item, len(results))
	for i, res := range results {
		items[i] = s.history.NewItem(res.Value, res.Label, comps[i].Mode, comps[i].Category)
	}
	s.history.Append(items...)

	s.logger.Info("generate done",
		"category", comps[0].Category,
		"mode", comps[0].Mode,
		"quality", string(quality),
		"images", len(items),
		"took", time.Since(start),
	)
	return Outcome{Items: items}, nil
}

type Copy struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

// Copywrite writes marketing copy for one product photo.
func (s *Service) Copywrite(ctx context.Context, image media.File, kind string) (Copy, error) {
	const op = "studio.Copywrite"

	if len(image.Data) == 0 {
		return Copy{}, fault.Validationf(op, "upload a product image first")
	}
	if s.gen == nil {
		return Copy{}, fault.MissingCredential(op)
	}

	text, err := s.gen.GenerateText(ctx, gemini.TextRequest{
		Images: []gemini.ImageInput{{Data: image.Data, MIMEType: image.MIMEType}},
		Prompt: prompt.CopyInstruction(kind),
	})
	if err != nil {
		return Copy{}, err
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		s.logger.Warn("copy markdown render failed", "error", err)
		buf.Reset()
	}

	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "caption"
	}
	return Copy{Kind: kind, Text: text, HTML: buf.String()}, nil
}

type TrendReport struct {
	Query  string `json:"query"`
	Cached bool   `json:"cached"`
	gemini.Grounded
}

// Trends runs a search-grounded market analysis. Answers are cached per
// query for the configured TTL.
func (s *Service) Trends(ctx context.Context, query string) (TrendReport, error) {
	query = strings.TrimSpace(query)
	key := strings.ToLower(query)

	if v, ok := s.trends.Get(key); ok {
		if g, ok := v.(gemini.Grounded); ok {
			return TrendReport{Query: query, Cached: true, Grounded: g}, nil
		}
	}
	if s.gen == nil {
		return TrendReport{}, fault.MissingCredential("studio.Trends")
	}

	g, err := s.gen.AnalyzeTrends(ctx, prompt.TrendsQuery(query))
	if err != nil {
		return TrendReport{}, err
	}
	s.trends.Set(key, g, cache.DefaultExpiration)
	return TrendReport{Query: query, Grounded: g}, nil
}

type VideoInput struct {
	Image       *media.File
	Category    string
	Mode        string
	Style       string
	Prompt      string
	AspectRatio string
}

func (s *Service) Video(ctx context.Context, in VideoInput) (string, error) {
	const op = "studio.Video"

	if _, err := s.creds.Resolve(ctx); err != nil {
		return "", err
	}
	ratio, err := gemini.ParseAspectRatio(in.AspectRatio)
	if err != nil {
		return "", fault.New(fault.Validation, op, err)
	}
	if s.gen == nil {
		return "", fault.MissingCredential(op)
	}

	c := s.catalog.Compose(prompt.Selection{
		Category: in.Category,
		Mode:     in.Mode,
		Style:    in.Style,
		Text:     in.Prompt,
	})

	url, err := s.gen.GenerateVideo(ctx, gemini.VideoRequest{
		Prompt:      prompt.VideoInstruction(c.System, c.User),
		Image:       toInput(in.Image),
		AspectRatio: ratio,
	})
	if err != nil {
		return "", err
	}
	s.history.Append(s.history.NewItem(url, "Video", c.Mode, c.Category))
	return url, nil
}

func (s *Service) KeyState() credential.State { return s.creds.State() }

func (s *Service) SetKey(key string) error { return s.creds.SetManualKey(key) }

func (s *Service) ClearKey() error { return s.creds.ClearManualKey() }

func (s *Service) OpenKeyPicker(ctx context.Context) (credential.State, error) {
	return s.creds.OpenPicker(ctx)
}

func (s *Service) SubscribeKey(fn func(credential.State)) func() {
	return s.creds.Subscribe(fn)
}

// Present converts any action error into the single notice a view shows.
func (s *Service) Present(err error) fault.Notice {
	if err == nil {
		return fault.Notice{}
	}
	n := fault.Describe(err)
	s.logger.Debug("action failed", "kind", n.Kind, "remedy", string(n.Remedy), "error", err)
	return n
}

func nonEmpty(files []media.File) []media.File {
	out := make([]media.File, 0, len(files))
	for _, f := range files {
		if len(f.Data) > 0 {
			out = append(out, f)
		}
	}
	return out
}

func toInputs(files []media.File) []gemini.ImageInput {
	out := make([]gemini.ImageInput, len(files))
	for i, f := range files {
		out[i] = gemini.ImageInput{Data: f.Data, MIMEType: f.MIMEType}
	}
	return out
}

func toInput(f *media.File) *gemini.ImageInput {
	if f == nil || len(f.Data) == 0 {
		return nil
	}
	return &gemini.ImageInput{Data: f.Data, MIMEType: f.MIMEType}
}
