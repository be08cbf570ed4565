// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the gap analysis pipeline and the on-demand
// enrichment services as a JSON API under /api.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pdiddy/genegap/internal/archive"
	"github.com/pdiddy/genegap/internal/crossref"
	"github.com/pdiddy/genegap/internal/extract"
	"github.com/pdiddy/genegap/internal/literature"
	"github.com/pdiddy/genegap/internal/llm"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/internal/metrics"
	"github.com/pdiddy/genegap/internal/pipeline"
	"github.com/pdiddy/genegap/internal/proposal"
	"github.com/pdiddy/genegap/internal/species"
	"github.com/pdiddy/genegap/pkg/types"
)

const (
	DefaultPort           = 5000
	DefaultAnalyzeTimeout = 10 * time.Minute
	shutdownTimeout       = 10 * time.Second
	serviceName           = "genegap"
)

// Analyzer runs full and single-gene analyses.
type Analyzer interface {
	Analyze(ctx context.Context, q types.Query) (*types.AnalysisResult, error)
	QuickCheck(ctx context.Context, gene string, targets []string) (pipeline.QuickResult, error)
}

// Searcher runs free-text literature searches.
type Searcher interface {
	Search(ctx context.Context, text, species string, max int) literature.Result
}

// Profiler returns publication profiles with a caller-chosen sample size.
type Profiler interface {
	Lookup(ctx context.Context, gene, species string, opts crossref.Options) types.PublicationProfile
}

// TextExtractor pulls genes and organisms out of pasted text.
type TextExtractor interface {
	ExtractText(ctx context.Context, text, model string) (extract.Output, error)
}

// Summarizer writes a gene summary from caller-supplied context.
type Summarizer interface {
	SummarizeText(ctx context.Context, gene, contextText, model string) (string, error)
}

// Enricher answers GO, ortholog and funding lookups.
type Enricher interface {
	LookupGO(ctx context.Context, gene, species string) types.GOTerms
	LookupOrtholog(ctx context.Context, gene, source, target string) types.OrthologResult
	SearchFunding(ctx context.Context, gene string) types.FundingResult
}

// Proposer writes research proposals.
type Proposer interface {
	Generate(ctx context.Context, r proposal.Request) proposal.Result
}

// Models reports on the language model server.
type Models interface {
	ListModels(ctx context.Context) ([]string, error)
	Check(ctx context.Context, model string) llm.Status
}

// Archive lists and loads stored analyses.
type Archive interface {
	List(ctx context.Context, opts archive.ListOptions) ([]archive.Entry, error)
	Get(ctx context.Context, id string) (types.AnalysisResult, error)
}

// Deps are the components behind the routes. Archive and Metrics are
// optional; without an archive the /analyses routes return 404.
type Deps struct {
	Analyzer   Analyzer
	Searcher   Searcher
	Profiler   Profiler
	Extractor  TextExtractor
	Summarizer Summarizer
	Enricher   Enricher
	Proposer   Proposer
	Models     Models
	Archive    Archive
	Species    *species.Table
	Metrics    *metrics.Metrics
	Log        *slog.Logger

	// DefaultModel seeds the model used when a request names none.
	DefaultModel string

	// Version is reported by /api/health.
	Version string
}

// Server is the HTTP API.
type Server struct {
	echo *echo.Echo
	cfg  types.ServerConfig
	d    Deps
	log  *slog.Logger

	mu    sync.RWMutex
	model string
}

// New builds the router. It does not start listening.
func New(cfg types.ServerConfig, d Deps) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = DefaultAnalyzeTimeout
	}
	if d.Species == nil {
		d.Species = species.Default()
	}
	log := d.Log
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{
		echo:  echo.New(),
		cfg:   cfg,
		d:     d,
		log:   log.With("component", "server"),
		model: d.DefaultModel,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	s.routes()
	return s
}

// Handler returns the router for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.echo }

// Addr returns host:port.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.Addr())
		if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) routes() {
	api := s.echo.Group("/api")

	api.GET("/health", s.health)
	api.GET("/status", s.status)
	api.GET("/species", s.listSpecies)
	api.GET("/models", s.listModels)
	api.POST("/models/set", s.setModel)

	api.POST("/search", s.search)
	api.POST("/analyze", s.analyze)
	api.POST("/analyze/quick", s.quickCheck)
	api.POST("/extract", s.extract)
	api.POST("/summarize", s.summarize)

	api.POST("/publications", s.publications)
	api.POST("/go-terms", s.goTerms)
	api.POST("/ortholog", s.ortholog)
	api.POST("/funding", s.funding)
	api.POST("/proposal/generate", s.generateProposal)
	api.POST("/export/pdf", s.exportPDF)

	api.GET("/analyses", s.listAnalyses)
	api.GET("/analyses/:id", s.getAnalysis)

	if s.d.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.d.Metrics.Handler()))
	}
}

// currentModel returns the model for a request, falling back to the
// server default.
func (s *Server) currentModel(requested string) string {
	if requested != "" {
		return requested
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *Server) setCurrentModel(m string) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

// handleError renders every error as {"error": message}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch code {
		case http.StatusNotFound:
			msg = "endpoint not found"
		case http.StatusMethodNotAllowed:
			msg = "method not allowed"
		default:
			msg = fmt.Sprint(he.Message)
		}
	} else {
		s.log.ErrorContext(c.Request().Context(), "unhandled error", "path", c.Path(), "error", err)
	}

	if err := c.JSON(code, errorBody{Error: msg}); err != nil {
		s.log.Warn("writing error response failed", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}
