package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/pipeline"
	"github.com/sells-group/insight-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: buildRouter(routerDeps{
				Analyzer:       env.Pipeline,
				Scraper:        env.Scraper,
				LinkedIn:       env.LinkedIn,
				Runs:           env.Store,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				DefaultDepth:   cfg.Crawl.DefaultDepth,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// analyzer runs the full pipeline. *pipeline.Pipeline implements it.
type analyzer interface {
	Run(ctx context.Context, q model.CompanyQuery) (*model.PipelineResult, error)
}

// runReader is the read side of the run store.
type runReader interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
	ListStages(ctx context.Context, runID string) ([]model.RunStage, error)
}

// routerDeps are the handlers' collaborators. A nil collaborator makes its
// routes answer 503.
type routerDeps struct {
	Analyzer       analyzer
	Scraper        pipeline.ScrapeStage
	LinkedIn       pipeline.LinkedInLookup
	Runs           runReader
	AllowedOrigins []string
	// DefaultDepth applies when a request omits crawl_depth.
	DefaultDepth int
}

// buildRouter returns the HTTP handler for the serve command.
func buildRouter(deps routerDeps) http.Handler {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/scrape", handleScrape(deps.Scraper, deps.DefaultDepth))
	r.Post("/linkedin", handleLinkedIn(deps.LinkedIn))
	r.Post("/analyze", handleAnalyze(deps.Analyzer, deps.DefaultDepth))
	r.Get("/runs", handleListRuns(deps.Runs))
	r.Get("/runs/{id}", handleGetRun(deps.Runs))

	return otelhttp.NewHandler(r, "insight-cli")
}

type scrapeRequest struct {
	URL        string `json:"url"`
	CrawlDepth *int   `json:"crawl_depth"`
}

func handleScrape(s pipeline.ScrapeStage, defaultDepth int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s == nil {
			writeError(w, http.StatusServiceUnavailable, "scraper not configured")
			return
		}
		var req scrapeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}

		target, err := pipeline.NormalizeURL(req.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := s.Scrape(r.Context(), target, requestDepth(req.CrawlDepth, defaultDepth))
		if err != nil {
			zap.L().Error("scrape request failed", zap.String("url", req.URL), zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type linkedinRequest struct {
	Company  string `json:"company"`
	Contacts bool   `json:"contacts"`
}

func handleLinkedIn(l pipeline.LinkedInLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if l == nil {
			writeError(w, http.StatusServiceUnavailable, "linkedin resolver not configured")
			return
		}
		var req linkedinRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Company) == "" {
			writeError(w, http.StatusBadRequest, "company is required")
			return
		}

		result, err := l.Resolve(r.Context(), req.Company, req.Contacts)
		if err != nil {
			zap.L().Error("linkedin request failed", zap.String("company", req.Company), zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type analyzeRequest struct {
	URL         string `json:"url"`
	CompanyName string `json:"company_name"`
	CrawlDepth  *int   `json:"crawl_depth"`
	ToolMode    bool   `json:"tool_mode"`
}

func handleAnalyze(a analyzer, defaultDepth int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a == nil {
			writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
			return
		}
		var req analyzeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}

		if _, err := pipeline.NormalizeURL(req.URL); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := a.Run(r.Context(), model.CompanyQuery{
			URL:        req.URL,
			Name:       req.CompanyName,
			CrawlDepth: requestDepth(req.CrawlDepth, defaultDepth),
			ToolMode:   req.ToolMode,
		})
		if err != nil {
			zap.L().Error("analyze request failed", zap.String("url", req.URL), zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleListRuns(runs runReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			writeError(w, http.StatusServiceUnavailable, "store not configured")
			return
		}
		q := r.URL.Query()
		filter := store.RunFilter{
			Status:     model.RunStatus(q.Get("status")),
			CompanyURL: q.Get("company"),
		}
		var err error
		if filter.Limit, err = intParam(q.Get("limit")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if filter.Offset, err = intParam(q.Get("offset")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}

		list, err := runs.ListRuns(r.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		if list == nil {
			list = []model.Run{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// runDetail is a run with its stage history.
type runDetail struct {
	*model.Run
	Stages []model.RunStage `json:"stages"`
}

func handleGetRun(runs runReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			writeError(w, http.StatusServiceUnavailable, "store not configured")
			return
		}
		id := chi.URLParam(r, "id")

		run, err := runs.GetRun(r.Context(), id)
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			zap.L().Error("get run failed", zap.String("run_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get run failed")
			return
		}

		stages, err := runs.ListStages(r.Context(), id)
		if err != nil {
			zap.L().Warn("list stages failed", zap.String("run_id", id), zap.Error(err))
		}
		if stages == nil {
			stages = []model.RunStage{}
		}
		writeJSON(w, http.StatusOK, runDetail{Run: run, Stages: stages})
	}
}

// requestLogger logs method, path, status and duration of each request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// requestDepth returns def when depth is absent or negative.
func requestDepth(depth *int, def int) int {
	if depth == nil || *depth < 0 {
		return def
	}
	return *depth
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid value %q", s)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
