// Package prompts loads the LLM prompt templates. A prompts.yaml next to
// the binary overrides the compiled-in defaults, so prompt tuning does not
// require a rebuild.
package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Script ScriptPrompts `yaml:"script"`
}

type SystemPrompts struct {
	Scripted string `yaml:"scripted"`
}

type ScriptPrompts struct {
	Scripted string `yaml:"scripted"`
}

type ScriptedParams struct {
	Title    string
	Content  string
	Language string
}

// Defaults returns the compiled-in prompt set.
func Defaults() *Prompts {
	return &Prompts{
		System: SystemPrompts{
			Scripted: "You are a short-form video scriptwriter. You turn technical " +
				"blog posts into engaging spoken narration for vertical videos. " +
				"You always answer with a single JSON object and nothing else.",
		},
		Script: ScriptPrompts{
			Scripted: `Write a spoken narration script of roughly 60 seconds for a short vertical video about the article below. Hook the viewer in the first sentence. Avoid URLs, code identifiers and markdown.

Also propose 5 to 7 concise image search queries that illustrate the narration, in the order they should appear.

Respond with exactly this JSON shape:
{"script": "...", "imageQueries": ["...", "..."]}

Article title: {{.Title}}
Language: {{.Language}}

Article:
{{.Content}}`,
		},
	}
}

// Load reads prompts.yaml from the working directory, falling back to the
// compiled-in defaults when the file does not exist.
func Load() (*Prompts, error) {
	return LoadFrom(defaultPromptsPath)
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	p := Defaults()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	return p, nil
}

func (p *Prompts) RenderScripted(params ScriptedParams) (string, error) {
	if params.Language == "" {
		params.Language = "en-US"
	}
	return render(p.Script.Scripted, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
