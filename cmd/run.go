package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/model"
)

var (
	runURL      string
	runName     string
	runDepth    int
	runToolMode bool
	runOut      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		query := model.CompanyQuery{
			URL:        runURL,
			Name:       runName,
			CrawlDepth: depthOrDefault(runDepth),
			ToolMode:   runToolMode,
		}

		result, err := env.Pipeline.Run(ctx, query)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		if runOut != "" {
			if err := writeReport(runOut, result); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", runOut))
		}

		return printJSON(os.Stdout, result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "company website URL (required)")
	runCmd.Flags().StringVar(&runName, "name", "", "company name (derived from the site when empty)")
	runCmd.Flags().IntVar(&runDepth, "depth", -1, "crawl depth (default from config)")
	runCmd.Flags().BoolVar(&runToolMode, "tool-mode", false, "render the report with tool calls")
	runCmd.Flags().StringVar(&runOut, "out", "", "write the report HTML to this file")
	_ = runCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(runCmd)
}

// depthOrDefault returns the configured default for a negative depth.
func depthOrDefault(depth int) int {
	if depth < 0 {
		return cfg.Crawl.DefaultDepth
	}
	return depth
}

// writeReport writes the rendered report HTML of result to path.
func writeReport(path string, result *model.PipelineResult) error {
	if result.Report == nil {
		return eris.New("run: no report to write")
	}
	if err := os.WriteFile(path, []byte(result.Report.HTML), 0o644); err != nil {
		return eris.Wrapf(err, "run: write report %s", path)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
