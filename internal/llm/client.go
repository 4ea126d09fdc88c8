// Package llm provides the language-model analysis used by the whale agent.
// Two providers are supported: DeepSeek (OpenAI-compatible chat completions)
// and Anthropic (messages API). The agent asks for a rigid three-line
// verdict so the reply can be parsed without any structured-output support.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Analysis actions.
const (
	ActionBuy     = "BUY"
	ActionSell    = "SELL"
	ActionNothing = "NOTHING"
)

// DefaultConfidence is assumed when the reply carries no confidence line.
const DefaultConfidence = 50

// WhaleAnalysisPrompt instructs the model to answer in exactly three lines.
const WhaleAnalysisPrompt = `You must respond in exactly 3 lines:
Line 1: Only write BUY, SELL, or NOTHING
Line 2: One short reason why
Line 3: Only write "Confidence: X%%" where X is 0-100

Analyze BTC with %s%% OI change in %dm:
Current OI: $%s
Previous OI: $%s
%s

Large OI increases with price up may indicate strong momentum
Large OI decreases with price down may indicate capitulation which can be a good buy or a confirmation of a trend, you will need to look at the data
`

// Analyzer produces a raw model reply for a prompt.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Analysis is the parsed three-line verdict.
type Analysis struct {
	Action     string
	Reason     string
	Confidence int
}

// BuildWhalePrompt fills the analysis prompt template.
func BuildWhalePrompt(pctChange float64, intervalMinutes int, currentOI, previousOI, marketData string) string {
	if marketData == "" {
		marketData = "No market data available"
	}
	return fmt.Sprintf(WhaleAnalysisPrompt,
		fmt.Sprintf("%.2f", pctChange),
		intervalMinutes,
		currentOI,
		previousOI,
		marketData,
	)
}

var confidenceRe = regexp.MustCompile(`(\d+)%`)

// ParseAnalysis extracts the action, reason and confidence from a model
// reply. The first non-empty line must be one of the three actions; a
// missing or malformed confidence line falls back to DefaultConfidence.
func ParseAnalysis(response string) (*Analysis, error) {
	var lines []string
	for _, line := range strings.Split(response, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty model response")
	}

	action := strings.ToUpper(lines[0])
	switch action {
	case ActionBuy, ActionSell, ActionNothing:
	default:
		return nil, fmt.Errorf("invalid action %q", lines[0])
	}

	reason := ""
	if len(lines) > 1 {
		reason = strings.Join(lines[1:], "\n")
	}

	confidence := DefaultConfidence
	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), "confidence") {
			continue
		}
		if m := confidenceRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				confidence = v
			}
		}
	}

	return &Analysis{
		Action:     action,
		Reason:     reason,
		Confidence: confidence,
	}, nil
}

// FirstReasonLine returns the first line of the reason, for announcements.
func (a *Analysis) FirstReasonLine() string {
	if a.Reason == "" {
		return ""
	}
	return strings.SplitN(a.Reason, "\n", 2)[0]
}

// Config selects and configures a provider.
type Config struct {
	Model        string // e.g. "deepseek-chat" or "claude-3-haiku-20240307"
	DeepSeekKey  string
	AnthropicKey string
	MaxTokens    int
	Temperature  float64
}

// NewAnalyzer picks the provider from the model name: any model containing
// "deepseek" goes to DeepSeek, everything else to Anthropic.
func NewAnalyzer(cfg Config) (Analyzer, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 50
	}

	if strings.Contains(strings.ToLower(cfg.Model), "deepseek") {
		if cfg.DeepSeekKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_KEY required for model %s", cfg.Model)
		}
		return NewDeepSeekClient(cfg.DeepSeekKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	}

	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_KEY required for model %s", cfg.Model)
	}
	return NewAnthropicClient(cfg.AnthropicKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
}
