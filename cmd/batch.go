package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/insight-cli/internal/input"
	"github.com/sells-group/insight-cli/internal/model"
)

var (
	batchInput  string
	batchOutput string
	batchLimit  int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the pipeline for every company in a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queries, err := input.Read(ctx, batchInput)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		var out io.Writer = os.Stdout
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "batch: create %s", batchOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		return processBatch(ctx, queries, batchLimit, cfg.Batch.MaxConcurrency, out, env.Pipeline.Run)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV or XLSX file of companies (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "JSONL results file (default stdout)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of companies to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// runFunc is the callback signature for running the pipeline on one company.
type runFunc func(ctx context.Context, q model.CompanyQuery) (*model.PipelineResult, error)

// batchLine is one JSONL record of batch output.
type batchLine struct {
	URL    string                `json:"url"`
	Result *model.PipelineResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// processBatch applies limit, then runs queries concurrently and writes one
// JSON line per company to out. A failed company does not stop the batch.
func processBatch(ctx context.Context, queries []model.CompanyQuery, limit, concurrency int, out io.Writer, run runFunc) error {
	if len(queries) == 0 {
		zap.L().Info("no companies in batch input")
		return nil
	}
	if limit > 0 && len(queries) > limit {
		queries = queries[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("companies", len(queries)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu        sync.Mutex
		enc       = json.NewEncoder(out)
		succeeded atomic.Int64
		failed    atomic.Int64
	)

	for _, q := range queries {
		g.Go(func() error {
			log := zap.L().With(zap.String("company", q.URL))

			line := batchLine{URL: q.URL}
			result, err := run(gctx, q)
			if err != nil {
				failed.Add(1)
				log.Error("pipeline failed", zap.Error(err))
				line.Error = err.Error()
			} else {
				succeeded.Add(1)
				log.Info("pipeline complete",
					zap.Int("retries", result.Retries),
					zap.Float64("estimated_cost_usd", result.EstimatedCost),
				)
				line.Result = result
			}

			mu.Lock()
			defer mu.Unlock()
			if err := enc.Encode(line); err != nil {
				return eris.Wrap(err, "batch: write result")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
