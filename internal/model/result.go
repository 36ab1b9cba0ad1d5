package model

import "encoding/json"

// Report is the rendered document produced by the rendering stage.
type Report struct {
	HTML       string     `json:"html"`
	ToolMode   bool       `json:"tool_mode"`
	ToolCalls  int        `json:"tool_calls"`
	Rounds     int        `json:"rounds"`
	BestEffort bool       `json:"best_effort,omitempty"`
	TokenUsage TokenUsage `json:"token_usage"`
	DurationMs int64      `json:"duration_ms"`
}

// PipelineResult is the terminal artifact of one pipeline run.
type PipelineResult struct {
	RunID         string           `json:"run_id"`
	Company       string           `json:"company"`
	URL           string           `json:"url"`
	Scrape        *ScrapeResult    `json:"scrape"`
	LinkedIn      *LinkedInResult  `json:"linkedin"`
	Analysis      json.RawMessage  `json:"analysis"`
	Report        *Report          `json:"report"`
	Retries       int              `json:"retries"`
	MissingFields []string         `json:"missing_fields"`
	TokenUsage    TokenUsage       `json:"token_usage"`
	EstimatedCost float64          `json:"estimated_cost_usd"`
	Timings       map[string]int64 `json:"timings"`
}
