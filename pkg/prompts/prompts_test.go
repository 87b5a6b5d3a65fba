package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	p, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if p.System.Scripted == "" || p.Script.Scripted == "" {
		t.Error("defaults not populated")
	}
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "system:\n  scripted: custom system prompt\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if p.System.Scripted != "custom system prompt" {
		t.Errorf("override not applied: %q", p.System.Scripted)
	}
	if p.Script.Scripted == "" {
		t.Error("unset fields should keep defaults")
	}
}

func TestRenderScripted(t *testing.T) {
	p := Defaults()
	got, err := p.RenderScripted(ScriptedParams{
		Title:   "Go Generics",
		Content: "Generics arrived in Go 1.18.",
	})
	if err != nil {
		t.Fatalf("RenderScripted() error = %v", err)
	}
	if !strings.Contains(got, "Go Generics") {
		t.Errorf("title not substituted: %q", got)
	}
	if !strings.Contains(got, "en-US") {
		t.Errorf("language default not applied: %q", got)
	}
	if !strings.Contains(got, "imageQueries") {
		t.Errorf("JSON shape instruction missing: %q", got)
	}
}

func TestRenderRejectsBadTemplate(t *testing.T) {
	p := Defaults()
	p.Script.Scripted = "{{.Broken"
	if _, err := p.RenderScripted(ScriptedParams{Title: "t", Content: "x"}); err == nil {
		t.Error("expected parse error for malformed template")
	}
}
