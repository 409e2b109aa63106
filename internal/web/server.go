// Package web serves the studio console as a JSON API. The console is
// single-user: the server owns one product slot and one reference slot.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"affiliate-studio/internal/credential"
	"affiliate-studio/internal/fault"
	"affiliate-studio/internal/media"
	"affiliate-studio/internal/studio"
)

const maxUploadBytes = 25 << 20

type Options struct {
	Studio         *studio.Service
	Registry       *media.Registry
	MaxUploads     int
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Server struct {
	studio    *studio.Service
	registry  *media.Registry
	subjects  *media.Holder
	reference *media.Holder
	timeout   time.Duration
	logger    *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := opts.Registry
	if registry == nil {
		registry = media.NewRegistry()
	}
	maxUploads := opts.MaxUploads
	if maxUploads <= 0 || maxUploads > studio.MaxSubjects {
		maxUploads = studio.MaxSubjects
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}

	opts.Studio.SubscribeKey(func(st credential.State) {
		logger.Info("credential changed", "source", string(st.Source), "connected", st.Connected)
	})

	return &Server{
		studio:    opts.Studio,
		registry:  registry,
		subjects:  media.NewHolder(media.Options{MaxFiles: maxUploads, Registry: registry}),
		reference: media.NewHolder(media.Options{MaxFiles: 1, Registry: registry}),
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)

	mux.HandleFunc("GET /api/uploads", s.handleListUploads)
	mux.HandleFunc("POST /api/uploads/{slot}", s.handleUpload)
	mux.HandleFunc("DELETE /api/uploads/{slot}", s.handleClearUploads)
	mux.HandleFunc("DELETE /api/uploads/{slot}/{id}", s.handleRemoveUpload)
	mux.HandleFunc("GET /blob/{token}", s.handleBlob)

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/copy", s.handleCopy)
	mux.HandleFunc("POST /api/trends", s.handleTrends)
	mux.HandleFunc("POST /api/video", s.handleVideo)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/export", s.handleHistoryExport)
	mux.HandleFunc("DELETE /api/history", s.handleHistoryClear)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleHistoryDelete)

	mux.HandleFunc("GET /api/key", s.handleKeyState)
	mux.HandleFunc("PUT /api/key", s.handleKeySet)
	mux.HandleFunc("DELETE /api/key", s.handleKeyClear)
	mux.HandleFunc("POST /api/key/picker", s.handleKeyPicker)

	return withLogging(mux, s.logger)
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.timeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type apiError struct {
	Error fault.Notice `json:"error"`
}

// writeFault maps an action error to its notice and an HTTP status.
func (s *Server) writeFault(w http.ResponseWriter, err error) {
	n := s.studio.Present(err)
	writeJSON(w, statusFor(fault.KindOf(err)), apiError{Error: n})
}

func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.Validation:
		return http.StatusBadRequest
	case fault.Configuration:
		return http.StatusPreconditionFailed
	case fault.Entitlement:
		return http.StatusForbidden
	case fault.EmptyResult:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: fault.Notice{
		Kind:    fault.Validation.String(),
		Message: "Invalid input: " + msg,
		Remedy:  fault.RemedyFixInput,
	}})
}

func (s *Server) actionContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"connected": s.studio.KeyState().Connected,
	})
}
