// Package pipeline turns a company URL into a sales analysis and an HTML
// report: scrape, resolve LinkedIn, synthesize, retry missing fields with
// targeted search, and render.
package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/events"
	"github.com/sells-group/insight-cli/internal/metrics"
	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/store"
)

// DefaultMaxRetries bounds the targeted-search retry loop.
const DefaultMaxRetries = 3

var tracer = otel.Tracer("insight-cli/pipeline")

// ScrapeStage fetches and extracts a company site.
type ScrapeStage interface {
	Scrape(ctx context.Context, url string, depth int) (*model.ScrapeResult, error)
}

// AnalyzeStage synthesizes an analysis from the gathered data.
type AnalyzeStage interface {
	Analyze(ctx context.Context, sr *model.ScrapeResult, li *model.LinkedInResult, company string, extra []model.SearchResult) (*Analysis, error)
}

// TargetedSearch finds results for the analysis fields that came back empty.
type TargetedSearch interface {
	Search(ctx context.Context, company string, missing []string) []model.SearchResult
}

// RenderStage renders an analysis into a report.
type RenderStage interface {
	Render(ctx context.Context, analysisJSON string, toolMode bool) (*model.Report, error)
}

// Stages are the components a pipeline drives.
type Stages struct {
	Scraper     ScrapeStage
	LinkedIn    LinkedInLookup
	Synthesizer AnalyzeStage
	Targeted    TargetedSearch
	Renderer    RenderStage
}

// Options tune a pipeline. Store and Events are optional.
type Options struct {
	Store  store.Store
	Events events.Publisher
	// MaxRetries of 0 uses DefaultMaxRetries; a negative value disables retries.
	MaxRetries int
	// ToolMode renders every run with tools. A query can also ask for tools.
	ToolMode bool
	// Watch is the field watch-list. Nil uses model.WatchList.
	Watch []string
}

// Pipeline runs the company intelligence stages for one query at a time.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	stages     Stages
	store      store.Store
	events     events.Publisher
	maxRetries int
	toolMode   bool
	watch      []string
}

// New creates a Pipeline.
func New(stages Stages, opts Options) *Pipeline {
	p := &Pipeline{
		stages:     stages,
		store:      opts.Store,
		events:     opts.Events,
		maxRetries: opts.MaxRetries,
		toolMode:   opts.ToolMode,
		watch:      opts.Watch,
	}
	if p.events == nil {
		p.events = events.Nop{}
	}
	switch {
	case p.maxRetries == 0:
		p.maxRetries = DefaultMaxRetries
	case p.maxRetries < 0:
		p.maxRetries = 0
	}
	if p.watch == nil {
		p.watch = model.WatchList
	}
	return p
}

// run carries the state of one execution.
type run struct {
	p       *Pipeline
	id      string
	company string
	result  *model.PipelineResult
}

// Run executes the pipeline for q.
func (p *Pipeline) Run(ctx context.Context, q model.CompanyQuery) (*model.PipelineResult, error) {
	start := time.Now()

	normalized, err := NormalizeURL(q.URL)
	if err != nil {
		return nil, err
	}
	q.URL = normalized
	if q.CrawlDepth < 0 {
		q.CrawlDepth = 0
	}
	toolMode := q.ToolMode || p.toolMode

	r := &run{
		p:       p,
		company: firstNonEmpty(strings.TrimSpace(q.Name), hostName(q.URL)),
		result: &model.PipelineResult{
			URL:           q.URL,
			MissingFields: []string{},
			Timings:       make(map[string]int64),
		},
	}
	if p.store != nil {
		created, err := p.store.CreateRun(ctx, q)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		r.id = created.ID
	} else {
		r.id = uuid.New().String()
	}
	r.result.RunID = r.id

	ctx, span := tracer.Start(ctx, "pipeline.run", traceAttrs(r.id, q.URL))
	defer span.End()

	zap.L().Info("pipeline: run started",
		zap.String("run_id", r.id),
		zap.String("url", q.URL),
		zap.Int("crawl_depth", q.CrawlDepth),
		zap.Bool("tool_mode", toolMode),
	)

	var sr *model.ScrapeResult
	if err := r.step(ctx, model.RunStatusScraping, func(ctx context.Context) error {
		var err error
		sr, err = p.stages.Scraper.Scrape(ctx, q.URL, q.CrawlDepth)
		return err
	}); err != nil {
		return r.fail(ctx, span, model.RunStatusScraping, err)
	}
	r.result.Scrape = sr
	r.result.TokenUsage.Add(sr.TokenUsage)
	r.company = companyName(q, sr)
	r.result.Company = r.company

	var li *model.LinkedInResult
	if err := r.step(ctx, model.RunStatusResolvingLinkedIn, func(ctx context.Context) error {
		var err error
		li, err = p.stages.LinkedIn.Resolve(ctx, r.company, true)
		return err
	}); err != nil {
		return r.fail(ctx, span, model.RunStatusResolvingLinkedIn, err)
	}
	r.result.LinkedIn = li

	extra := []model.SearchResult{}
	seen := make(map[string]bool)
	var analysis *Analysis
	synthesize := func(ctx context.Context) error {
		a, err := p.stages.Synthesizer.Analyze(ctx, sr, li, r.company, extra)
		if err != nil {
			return err
		}
		analysis = a
		r.result.TokenUsage.Add(a.TokenUsage)
		return nil
	}
	if err := r.step(ctx, model.RunStatusSynthesizing, synthesize); err != nil {
		return r.fail(ctx, span, model.RunStatusSynthesizing, err)
	}

	var missing []string
	for {
		r.setStatus(ctx, model.RunStatusCheckingCompleteness)
		missing = analysis.Data.Missing(p.watch)
		if len(missing) == 0 || r.result.Retries >= p.maxRetries {
			break
		}
		r.result.Retries++
		zap.L().Info("pipeline: fields missing, retrying with targeted search",
			zap.String("run_id", r.id),
			zap.String("company", r.company),
			zap.Strings("missing", missing),
			zap.Int("retry", r.result.Retries),
		)

		if err := r.step(ctx, model.RunStatusRetrying, func(ctx context.Context) error {
			found := p.stages.Targeted.Search(ctx, r.company, missing)
			for _, res := range found {
				key := strings.TrimSpace(res.URL)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				extra = append(extra, res)
			}
			return ctx.Err()
		}); err != nil {
			return r.fail(ctx, span, model.RunStatusRetrying, err)
		}

		if err := r.step(ctx, model.RunStatusSynthesizing, synthesize); err != nil {
			return r.fail(ctx, span, model.RunStatusSynthesizing, err)
		}
	}
	if missing != nil {
		r.result.MissingFields = missing
	}
	r.result.Analysis = json.RawMessage(analysis.JSON)

	var report *model.Report
	if err := r.step(ctx, model.RunStatusRendering, func(ctx context.Context) error {
		var err error
		report, err = p.stages.Renderer.Render(ctx, analysis.JSON, toolMode)
		return err
	}); err != nil {
		return r.fail(ctx, span, model.RunStatusRendering, err)
	}
	r.result.Report = report
	r.result.TokenUsage.Add(report.TokenUsage)
	r.result.EstimatedCost = r.result.TokenUsage.Cost

	total := time.Since(start)
	r.result.Timings["total"] = total.Milliseconds()

	if p.store != nil {
		if err := p.store.UpdateRunResult(context.WithoutCancel(ctx), r.id, r.result); err != nil {
			zap.L().Error("pipeline: persist result failed", zap.String("run_id", r.id), zap.Error(err))
		}
	}
	metrics.RecordRun(string(model.RunStatusDone), r.result.Retries)
	metrics.ObserveStage("total", metrics.StatusOK, total)
	r.publish(ctx, string(model.RunStatusDone), string(model.RunStatusDone), total, "")

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", r.id),
		zap.String("company", r.company),
		zap.Int("retries", r.result.Retries),
		zap.Strings("missing", r.result.MissingFields),
		zap.Float64("estimated_cost_usd", r.result.EstimatedCost),
		zap.Int64("duration_ms", total.Milliseconds()),
	)
	return r.result, nil
}

// step runs one timed stage with its status update, span, stage row,
// metric and progress events.
func (r *run) step(ctx context.Context, status model.RunStatus, fn func(ctx context.Context) error) error {
	stage := string(status)
	r.setStatus(ctx, status)

	ctx, span := tracer.Start(ctx, "pipeline."+stage, traceAttrs(r.id, r.company))
	defer span.End()

	var stageID string
	if r.p.store != nil {
		row, err := r.p.store.CreateStage(ctx, r.id, stage)
		if err != nil {
			zap.L().Warn("pipeline: record stage failed", zap.String("run_id", r.id), zap.String("stage", stage), zap.Error(err))
		} else {
			stageID = row.ID
		}
	}
	r.publish(ctx, stage, string(model.StageStatusRunning), 0, "")

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	r.result.Timings[stage] += elapsed.Milliseconds()

	stageStatus, metricStatus, reason := model.StageStatusComplete, metrics.StatusOK, ""
	if err != nil {
		stageStatus, metricStatus, reason = model.StageStatusFailed, metrics.StatusError, err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
	}
	metrics.ObserveStage(stage, metricStatus, elapsed)

	if stageID != "" {
		if cerr := r.p.store.CompleteStage(context.WithoutCancel(ctx), stageID, stageStatus, elapsed.Milliseconds(), reason); cerr != nil {
			zap.L().Warn("pipeline: complete stage failed", zap.String("run_id", r.id), zap.String("stage", stage), zap.Error(cerr))
		}
	}
	r.publish(ctx, stage, string(stageStatus), elapsed, reason)

	if err == nil {
		zap.L().Info("pipeline: stage complete",
			zap.String("run_id", r.id),
			zap.String("company", r.company),
			zap.String("stage", stage),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	}
	return err
}

func (r *run) setStatus(ctx context.Context, status model.RunStatus) {
	if r.p.store == nil {
		return
	}
	if err := r.p.store.UpdateRunStatus(ctx, r.id, status); err != nil {
		zap.L().Warn("pipeline: update status failed",
			zap.String("run_id", r.id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (r *run) fail(ctx context.Context, span trace.Span, status model.RunStatus, err error) (*model.PipelineResult, error) {
	stage := string(status)
	reason := err.Error()
	span.SetStatus(codes.Error, reason)

	zap.L().Error("pipeline: run failed",
		zap.String("stage", stage),
		zap.String("company", r.company),
		zap.String("run_id", r.id),
		zap.Error(err),
	)

	bg := context.WithoutCancel(ctx)
	if r.p.store != nil {
		if ferr := r.p.store.FailRun(bg, r.id, stage+": "+reason); ferr != nil {
			zap.L().Warn("pipeline: persist failure failed", zap.String("run_id", r.id), zap.Error(ferr))
		}
	}
	metrics.RecordRun(string(model.RunStatusFailed), r.result.Retries)
	r.publish(bg, string(model.RunStatusFailed), string(model.RunStatusFailed), 0, stage+": "+reason)

	return nil, eris.Wrapf(err, "pipeline: %s %s", stage, r.company)
}

func (r *run) publish(ctx context.Context, stage, status string, d time.Duration, reason string) {
	ev := events.Event{
		RunID:      r.id,
		Company:    r.company,
		Stage:      stage,
		Status:     status,
		DurationMs: d.Milliseconds(),
		Error:      reason,
		Time:       time.Now().UTC(),
	}
	if err := r.p.events.Publish(ctx, ev); err != nil {
		zap.L().Debug("pipeline: publish event failed", zap.String("run_id", r.id), zap.Error(err))
	}
}

func traceAttrs(runID, company string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("company", company),
	)
}
