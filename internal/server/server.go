// Package server exposes conversions over HTTP: upload a file, download the
// result through a short-lived handle, then release it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/klytics/docconv/internal/audit"
	"github.com/klytics/docconv/internal/delivery"
	"github.com/klytics/docconv/internal/formats/convert"
)

// multipartOverhead is allowed on top of the file size limit for form
// fields and part headers.
const multipartOverhead = 1 << 20

// Config configures a Server.
type Config struct {
	Converter *convert.Converter
	Store     *delivery.Store
	Audit     *audit.Logger // optional
	Logger    *slog.Logger
}

// Server is the HTTP surface.
type Server struct {
	conv   *convert.Converter
	store  *delivery.Store
	audit  *audit.Logger
	logger *slog.Logger
	router *chi.Mux
}

// New builds a Server and its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Store == nil {
		cfg.Store = delivery.NewStore(0, 0)
	}
	if cfg.Converter == nil {
		cfg.Converter = convert.New(convert.Config{Logger: cfg.Logger})
	}
	s := &Server{
		conv:   cfg.Converter,
		store:  cfg.Store,
		audit:  cfg.Audit,
		logger: cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/formats", s.handleFormats)
	r.Post("/convert", s.handleConvert)
	r.Route("/downloads/{id}", func(r chi.Router) {
		r.Get("/", s.handleDownload)
		r.Delete("/", s.handleRelease)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, sweeping expired
// downloads in the background.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("could not serve on %s — is the port already in use? %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) sweep(ctx context.Context) {
	interval := s.store.TTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Sweep(); n > 0 {
				s.logger.Debug("server: swept expired downloads", "count", n)
			}
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("server: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// FormatsResponse is the body of GET /formats.
type FormatsResponse struct {
	Conversions map[string][]string `json:"conversions"`
	MaxFileSize int64               `json:"max_file_size"`
	MaxPages    int                 `json:"max_pages"`
	MaxSlides   int                 `json:"max_slides"`
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	size, pages, slides := s.conv.Limits()
	writeJSON(w, http.StatusOK, FormatsResponse{
		Conversions: convert.SupportedConversions,
		MaxFileSize: size,
		MaxPages:    pages,
		MaxSlides:   slides,
	})
}

// ConvertResponse is the body of a successful POST /convert.
type ConvertResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	MIMEType    string    `json:"mime_type"`
	Size        int       `json:"size"`
	Members     []string  `json:"members,omitempty"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	maxSize, _, _ := s.conv.Limits()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, &convert.Error{Kind: convert.KindValidation, Err: fmt.Errorf("upload exceeds the %d byte limit", maxSize)})
			return
		}
		writeError(w, &convert.Error{Kind: convert.KindValidation, Err: errors.New("missing multipart field \"file\"")})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, &convert.Error{Kind: convert.KindValidation, Err: fmt.Errorf("could not read upload: %w", err)})
		return
	}

	req := convert.Request{
		Name:   header.Filename,
		Data:   data,
		Target: r.FormValue("to"),
		Sheet:  r.FormValue("sheet"),
	}
	res, err := s.conv.Convert(r.Context(), req)

	entry := audit.Entry{
		Via:        "http",
		Source:     req.Name,
		From:       convert.SourceFormat(req.Name),
		To:         convert.NormalizeTarget(req.Target),
		BytesIn:    int64(len(data)),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		ce := convert.Classify(err)
		entry.ErrorKind, entry.Error = ce.Kind.String(), ce.Error()
		s.audit.Log(r.Context(), entry)
		writeError(w, ce)
		return
	}
	entry.Output, entry.BytesOut = res.Filename, int64(len(res.Data))
	s.audit.Log(r.Context(), entry)

	item, err := s.store.Put(res.Filename, res.MIMEType, res.Data)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Kind: convert.KindResource.String(), Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, ConvertResponse{
		ID:          item.ID,
		Filename:    item.Filename,
		MIMEType:    item.MIMEType,
		Size:        len(item.Data),
		Members:     res.Members,
		DownloadURL: "/downloads/" + item.ID,
		ExpiresAt:   item.Created.Add(s.store.TTL),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Kind: "not_found", Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", item.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": item.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(item.Data)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Release(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Kind: "not_found", Message: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(k convert.Kind) int {
	switch k {
	case convert.KindValidation:
		return http.StatusBadRequest
	case convert.KindUnsupported, convert.KindParse, convert.KindEncrypted:
		return http.StatusUnprocessableEntity
	case convert.KindResource:
		return http.StatusRequestEntityTooLarge
	case convert.KindUnavailable:
		return http.StatusServiceUnavailable
	case convert.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, ce *convert.Error) {
	writeJSON(w, StatusFor(ce.Kind), ErrorResponse{Kind: ce.Kind.String(), Message: ce.UserMessage()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
