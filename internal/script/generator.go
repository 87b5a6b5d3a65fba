// Package script produces narration scripts and image search queries for
// scripted videos from post content.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postreel/internal/llm"
	"postreel/pkg/httputil"
	"postreel/pkg/prompts"
)

const (
	maxAttempts = 3
	retryDelay  = time.Second

	minImageQueries = 5
	maxImageQueries = 7
)

// Result is a generated narration script plus ordered image search queries.
type Result struct {
	Script       string   `json:"script"`
	ImageQueries []string `json:"imageQueries"`
}

// Generator asks an LLM for a narration script in a strict JSON contract.
type Generator struct {
	client  llm.Client
	prompts *prompts.Prompts
	logger  *slog.Logger
}

func NewGenerator(client llm.Client, p *prompts.Prompts, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, prompts: p, logger: logger}
}

// Generate produces the script for a post. Transport failures are retried a
// fixed number of times; a malformed response is a hard failure because a
// model that returned bad JSON once is likely to do it again.
func (g *Generator) Generate(ctx context.Context, title, content, language string) (*Result, error) {
	userPrompt, err := g.prompts.RenderScripted(prompts.ScriptedParams{
		Title:    title,
		Content:  content,
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	var raw string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err = g.client.CompleteJSON(ctx, g.prompts.System.Scripted, userPrompt)
		if err == nil {
			break
		}
		if !httputil.IsTransient(err) || attempt == maxAttempts {
			return nil, fmt.Errorf("generate script: %w", err)
		}
		g.logger.Warn("script generation failed, retrying",
			"attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	result, err := parseResult(raw)
	if err != nil {
		return nil, err
	}

	g.logger.Info("script generated",
		"words", len(strings.Fields(result.Script)),
		"imageQueries", len(result.ImageQueries))
	return result, nil
}

func parseResult(raw string) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse script response: %w", err)
	}

	result.Script = strings.TrimSpace(result.Script)
	if result.Script == "" {
		return nil, fmt.Errorf("script response has empty script")
	}

	queries := result.ImageQueries[:0]
	for _, q := range result.ImageQueries {
		q = strings.TrimSpace(q)
		if q != "" {
			queries = append(queries, q)
		}
	}
	result.ImageQueries = queries

	if len(result.ImageQueries) < minImageQueries {
		return nil, fmt.Errorf("script response has %d image queries, want at least %d",
			len(result.ImageQueries), minImageQueries)
	}
	if len(result.ImageQueries) > maxImageQueries {
		result.ImageQueries = result.ImageQueries[:maxImageQueries]
	}
	return &result, nil
}
