package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued               RunStatus = "queued"
	RunStatusScraping             RunStatus = "scraping"
	RunStatusResolvingLinkedIn    RunStatus = "resolving_linkedin"
	RunStatusSynthesizing         RunStatus = "synthesizing"
	RunStatusCheckingCompleteness RunStatus = "checking_completeness"
	RunStatusRetrying             RunStatus = "retrying"
	RunStatusRendering            RunStatus = "rendering"
	RunStatusDone                 RunStatus = "done"
	RunStatusFailed               RunStatus = "failed"
)

// IsTerminal reports whether no further transitions can follow s.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

// CompanyQuery is the input to a single pipeline run.
type CompanyQuery struct {
	URL        string `json:"url"`
	Name       string `json:"name,omitempty"`
	CrawlDepth int    `json:"crawl_depth"`
	ToolMode   bool   `json:"tool_mode,omitempty"`
}

// Run represents a persisted pipeline run.
type Run struct {
	ID        string          `json:"id"`
	Company   CompanyQuery    `json:"company"`
	Status    RunStatus       `json:"status"`
	Result    *PipelineResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StageStatus represents the outcome of one pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// RunStage records one executed stage of a run. A stage that repeats
// (synthesizing, retrying) produces one row per execution.
type RunStage struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
}

// TokenUsage tracks language-model token consumption across a run.
type TokenUsage struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	Cost                float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheCreationTokens += other.CacheCreationTokens
	t.CacheReadTokens += other.CacheReadTokens
	t.Cost += other.Cost
}
