// Package llm turns article text into structured analysis through an
// OpenAI-compatible chat endpoint. The Analyzer issues single-shot requests,
// the Retrier decorates them with capped exponential backoff.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/sashabaranov/go-openai"

	"github.com/umputun/newsdigest/pkg/config"
	"github.com/umputun/newsdigest/pkg/domain"
)

// ErrTruncated marks a response whose JSON stops mid-stream, usually because
// the completion ran out of tokens. Callers may ask once more on this error.
var ErrTruncated = errors.New("llm response truncated")

// Analyzer sends article text to the LLM and returns its raw reply.
type Analyzer struct {
	client    *openai.Client
	config    config.LLMConfig
	systemMsg string
}

// NewAnalyzer creates an analyzer for the configured endpoint and model.
func NewAnalyzer(cfg config.LLMConfig) *Analyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	// use custom system prompt if provided, otherwise use default
	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}
	if schema := analysisSchema(); schema != "" {
		systemMsg += "\n\nThe response must conform to this JSON Schema:\n" + schema
	}

	return &Analyzer{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// default system prompt for article analysis; the response schema is appended
// at construction time
const defaultSystemPrompt = `You are a news analyst. For the news article provided by the user, produce a single JSON object with your structured analysis.

The analysis must contain:
- dateOfPublication: publication date in YYYY-MM-DD form, empty string if the article does not state it
- timeOfPublication: publication time in HH:MM form when stated, empty string otherwise
- title: the article headline, cleaned of site branding
- category: one broad news category such as Politics, Business, Technology, Science, Health, Sports, World or Entertainment
- summaryOfNewsArticle: comprehensive summary of the key points, findings and important details (300-500 chars). Write directly about the content itself. NEVER use phrases like "The article discusses", "The piece covers" or "The author explains". Start with the actual subject matter.
- keyTakeAways: 3-5 short statements a reader should remember
- namedEntities: people, organizations and places central to the story, each with what it is and why it is relevant to this article
- importantDates: dates mentioned in the article, each with why it is relevant
- importantTimeframes: periods the article refers to, each with an approximate start, an approximate end and why the period matters
- tags: 3-6 lowercase topical keywords

IMPORTANT: respond with exactly one JSON object and nothing else. No markdown fences, no commentary. Every field must be present; use empty strings and empty arrays when the article gives nothing to extract.`

// Ask sends one article text for analysis and returns the assistant's raw
// reply. Parsing belongs to the caller; only transport failures and empty
// completions are errors here.
func (a *Analyzer) Ask(ctx context.Context, content string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: float32(a.config.Temperature),
		MaxTokens:   a.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.systemMsg,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: content,
			},
		},
	}

	// add JSON response format if enabled
	if a.config.UseJSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}
	return resp.Choices[0].Message.Content, nil
}

// ParseAnalysis extracts the JSON object from a raw reply and unmarshals it.
// A payload cut off mid-object reports ErrTruncated; every other failure is
// permanent for the caller.
func ParseAnalysis(content string) (*domain.Analysis, error) {
	jsonStr, err := extractObject(content)
	if err != nil {
		return nil, err
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		if strings.Contains(err.Error(), "unexpected end of JSON input") {
			return nil, fmt.Errorf("parse analysis: %w", ErrTruncated)
		}
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	return &analysis, nil
}

// extractObject cuts the outermost json object out of the reply, tolerating
// prose or markdown fences around it.
func extractObject(content string) (string, error) {
	start := strings.Index(content, "{")
	if start == -1 {
		return "", fmt.Errorf("no json object in response")
	}
	end := strings.LastIndex(content, "}")
	if end < start {
		return "", fmt.Errorf("object never closed: %w", ErrTruncated)
	}
	return content[start : end+1], nil
}

// analysisSchema reflects the analysis type into a self-contained schema for
// the system prompt.
func analysisSchema() string {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	schema := reflector.Reflect(&domain.Analysis{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
