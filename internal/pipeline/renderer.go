package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/cost"
	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/scrape"
	"github.com/sells-group/insight-cli/pkg/anthropic"
)

// DefaultMaxToolRounds caps the tool loop when none is configured.
const DefaultMaxToolRounds = 5

// maxNoteRunes bounds the tool output carried into the best-effort call.
const maxNoteRunes = 16000

const reportPrompt = `Write a sales intelligence report for %s as a single self-contained HTML document.

Sections: company overview, products and services, decision makers, sales signals, recent news, risks, recommended next actions.
Use only the analysis below and any tool results. Return only the HTML.

Analysis:
%s`

const toolInstructions = `

You may call the available tools to enrich the report with news, LinkedIn details, market trends, matching products from our catalogue or web search results. Stop calling tools once you have enough.`

const bestEffortInstructions = `

The research budget is spent. Write the final report now from the analysis and the research notes below.

Research notes:
%s`

// Renderer turns an analysis into an HTML report, optionally letting the
// model call tools first.
type Renderer struct {
	ai        anthropic.Client
	model     string
	tools     *ToolRegistry
	maxRounds int
	brand     string
	calc      *cost.Calculator
}

// NewRenderer creates a Renderer. maxRounds <= 0 uses DefaultMaxToolRounds.
func NewRenderer(ai anthropic.Client, modelID string, tools *ToolRegistry, maxRounds int, brand string, calc *cost.Calculator) *Renderer {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	if strings.TrimSpace(brand) == "" {
		brand = "our sales team"
	}
	return &Renderer{ai: ai, model: modelID, tools: tools, maxRounds: maxRounds, brand: brand, calc: calc}
}

// Render produces the report. Malformed analysis JSON is replaced with an
// empty object. Tool mode without registered tools falls back to a single
// call.
func (r *Renderer) Render(ctx context.Context, analysisJSON string, toolMode bool) (*model.Report, error) {
	start := time.Now()

	if !isJSONObject(analysisJSON) {
		zap.L().Warn("renderer: analysis is not a JSON object, rendering from empty analysis")
		analysisJSON = "{}"
	}
	prompt := fmt.Sprintf(reportPrompt, r.brand, analysisJSON)

	report := &model.Report{ToolMode: toolMode && r.tools.Len() > 0}
	var err error
	if report.ToolMode {
		err = r.renderWithTools(ctx, prompt, report)
	} else {
		err = r.renderOnce(ctx, prompt, report)
	}
	if err != nil {
		return nil, err
	}

	report.DurationMs = time.Since(start).Milliseconds()
	zap.L().Info("renderer: report rendered",
		zap.Bool("tool_mode", report.ToolMode),
		zap.Int("rounds", report.Rounds),
		zap.Int("tool_calls", report.ToolCalls),
		zap.Bool("best_effort", report.BestEffort),
		zap.Int("html_len", len(report.HTML)),
		zap.Int64("duration_ms", report.DurationMs),
	)
	return report, nil
}

func (r *Renderer) renderOnce(ctx context.Context, prompt string, report *model.Report) error {
	resp, err := r.create(ctx, []anthropic.Message{{Role: "user", Content: prompt}}, nil, report)
	if err != nil {
		return eris.Wrap(err, "renderer: create message")
	}
	report.Rounds = 1
	report.HTML = cleanHTML(resp.Text())
	return nil
}

func (r *Renderer) renderWithTools(ctx context.Context, prompt string, report *model.Report) error {
	messages := []anthropic.Message{{Role: "user", Content: prompt + toolInstructions}}
	defs := r.tools.Definitions()

	var lastText string
	var notes []string
	for report.Rounds < r.maxRounds {
		resp, err := r.create(ctx, messages, defs, report)
		if err != nil {
			return eris.Wrapf(err, "renderer: round %d", report.Rounds+1)
		}
		report.Rounds++

		text := resp.Text()
		if strings.TrimSpace(text) != "" {
			lastText = text
		}
		uses := resp.ToolUses()
		if len(uses) == 0 {
			report.HTML = cleanHTML(firstNonEmpty(text, lastText))
			return nil
		}

		messages = append(messages, anthropic.Message{Role: "assistant", Content: text, ToolUses: uses})
		results := make([]anthropic.ToolResult, 0, len(uses))
		for _, use := range uses {
			results = append(results, r.callTool(ctx, use, report, &notes))
		}
		messages = append(messages, anthropic.Message{Role: "user", ToolResults: results})
	}

	// Cap reached: a fresh conversation without tools, since tool_use
	// history cannot be sent without the tool definitions.
	report.BestEffort = true
	zap.L().Warn("renderer: tool round cap reached, requesting best-effort report",
		zap.Int("rounds", report.Rounds),
		zap.Int("tool_calls", report.ToolCalls),
	)
	research := strings.Join(notes, "\n\n")
	if research == "" {
		research = "(none)"
	}
	final := []anthropic.Message{{Role: "user", Content: prompt + fmt.Sprintf(bestEffortInstructions, scrape.TruncateRunes(research, maxNoteRunes))}}
	resp, err := r.create(ctx, final, nil, report)
	if err != nil {
		return eris.Wrap(err, "renderer: best-effort call")
	}
	report.HTML = cleanHTML(firstNonEmpty(resp.Text(), lastText))
	return nil
}

func (r *Renderer) callTool(ctx context.Context, use anthropic.ToolUse, report *model.Report, notes *[]string) anthropic.ToolResult {
	report.ToolCalls++
	out, err := r.tools.Call(ctx, use.Name, use.Input)
	if err != nil {
		zap.L().Warn("renderer: tool call failed", zap.String("tool", use.Name), zap.Error(err))
		return anthropic.ToolResult{ToolUseID: use.ID, Content: err.Error(), IsError: true}
	}
	if ToolName(use.Name) == ToolTrendFetcher && r.calc != nil {
		report.TokenUsage.Cost += r.calc.PerplexityQuery()
	}
	*notes = append(*notes, fmt.Sprintf("%s(%s):\n%s", use.Name, string(use.Input), out))
	return anthropic.ToolResult{ToolUseID: use.ID, Content: out}
}

func (r *Renderer) create(ctx context.Context, messages []anthropic.Message, tools []anthropic.ToolDefinition, report *model.Report) (*anthropic.MessageResponse, error) {
	resp, err := r.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: 8192,
		Messages:  messages,
		Tools:     tools,
	})
	if err != nil {
		return nil, err
	}
	report.TokenUsage.Add(usageOf(resp, r.model, "rendering", r.calc))
	return resp, nil
}

func isJSONObject(s string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil && obj != nil
}
