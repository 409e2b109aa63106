package web

import (
	"bytes"
	"net/http"
	"strings"

	"affiliate-studio/internal/batch"
	"affiliate-studio/internal/gemini"
	"affiliate-studio/internal/history"
	"affiliate-studio/internal/media"
	"affiliate-studio/internal/prompt"
	"affiliate-studio/internal/studio"
)

type catalogResponse struct {
	Categories   []prompt.Category    `json:"categories"`
	Styles       []prompt.Option      `json:"styles"`
	Angles       []prompt.Option      `json:"angles"`
	Qualities    []gemini.Quality     `json:"qualities"`
	AspectRatios []gemini.AspectRatio `json:"aspect_ratios"`
	CopyKinds    []string             `json:"copy_kinds"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	c := s.studio.Catalog()
	writeJSON(w, http.StatusOK, catalogResponse{
		Categories:   c.Categories(),
		Styles:       c.Styles(),
		Angles:       c.Angles(),
		Qualities:    []gemini.Quality{gemini.Standard, gemini.HD2K, gemini.UltraHD4K},
		AspectRatios: []gemini.AspectRatio{gemini.Square, gemini.Landscape, gemini.Portrait},
		CopyKinds:    prompt.CopyKinds(),
	})
}

type generateRequest struct {
	Category    string   `json:"category"`
	Mode        string   `json:"mode"`
	Style       string   `json:"style"`
	Angle       string   `json:"angle"`
	Angles      []string `json:"angles"`
	Prompt      string   `json:"prompt"`
	Quality     string   `json:"quality"`
	AspectRatio string   `json:"aspect_ratio"`
	BatchMode   string   `json:"batch_mode"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var mode *batch.Mode
	if req.BatchMode != "" {
		m, err := batch.ParseMode(strings.ToLower(req.BatchMode))
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		mode = &m
	}

	subjects, ref := s.files()
	ctx, cancel := s.actionContext(r)
	defer cancel()

	out, err := s.studio.Generate(ctx, studio.GenerateInput{
		Subjects:    subjects,
		Reference:   ref,
		Category:    req.Category,
		Mode:        req.Mode,
		Style:       req.Style,
		Angle:       req.Angle,
		Angles:      req.Angles,
		Prompt:      req.Prompt,
		Quality:     req.Quality,
		AspectRatio: req.AspectRatio,
		BatchMode:   mode,
	})
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type copyRequest struct {
	Kind    string `json:"kind"`
	ImageID string `json:"image_id"`
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	image, ok := s.pickSubject(req.ImageID)
	if !ok {
		badRequest(w, "upload a product image first")
		return
	}

	ctx, cancel := s.actionContext(r)
	defer cancel()

	c, err := s.studio.Copywrite(ctx, image, req.Kind)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// pickSubject returns the named product image, or the first one.
func (s *Server) pickSubject(id string) (media.File, bool) {
	if id != "" {
		img, ok := s.subjects.Get(id)
		return img.File(), ok
	}
	files := s.subjects.Files()
	if len(files) == 0 {
		return media.File{}, false
	}
	return files[0], true
}

type trendsRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	var req trendsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	ctx, cancel := s.actionContext(r)
	defer cancel()

	report, err := s.studio.Trends(ctx, req.Query)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type videoRequest struct {
	Category    string `json:"category"`
	Mode        string `json:"mode"`
	Style       string `json:"style"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	ImageID     string `json:"image_id"`
}

type videoResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	in := studio.VideoInput{
		Category:    req.Category,
		Mode:        req.Mode,
		Style:       req.Style,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	}
	if image, ok := s.pickSubject(req.ImageID); ok {
		in.Image = &image
	}

	ctx, cancel := s.actionContext(r)
	defer cancel()

	url, err := s.studio.Video(ctx, in)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videoResponse{URL: url})
}

type historyResponse struct {
	Items     []history.Item `json:"items"`
	Capacity  int            `json:"capacity"`
	Persisted bool           `json:"persisted"`
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	h := s.studio.History()
	writeJSON(w, http.StatusOK, historyResponse{
		Items:     h.List(),
		Capacity:  h.Capacity(),
		Persisted: h.Persisted(),
	})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if !s.studio.History().Delete(r.PathValue("id")) {
		http.NotFound(w, r)
		return
	}
	s.handleHistory(w, r)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	s.studio.History().Clear()
	s.handleHistory(w, r)
}

var exportContentTypes = map[history.Format]string{
	history.FormatJSON:    "application/json",
	history.FormatYAML:    "application/yaml",
	history.FormatParquet: "application/vnd.apache.parquet",
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	format, err := history.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.studio.History().Export(&buf, format); err != nil {
		s.logger.Error("history export failed", "format", string(format), "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("content-type", exportContentTypes[format])
	w.Header().Set("content-disposition", `attachment; filename="history.`+string(format)+`"`)
	_, _ = w.Write(buf.Bytes())
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleKeyState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.KeyState())
}

func (s *Server) handleKeySet(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.studio.SetKey(req.Key); err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.studio.KeyState())
}

func (s *Server) handleKeyClear(w http.ResponseWriter, _ *http.Request) {
	if err := s.studio.ClearKey(); err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.studio.KeyState())
}

func (s *Server) handleKeyPicker(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.actionContext(r)
	defer cancel()

	st, err := s.studio.OpenKeyPicker(ctx)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
