package config

import "testing"

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Groq.Model != defaultGroqModel {
		t.Errorf("groq model = %q", cfg.Groq.Model)
	}
	if cfg.Speech.Language != "en-US" {
		t.Errorf("language = %q", cfg.Speech.Language)
	}
	if cfg.Speech.VoiceStyle != "neural" {
		t.Errorf("voice style = %q", cfg.Speech.VoiceStyle)
	}
	if cfg.Video.OutputDir != defaultOutputDir || cfg.Video.TempDir != defaultTempDir {
		t.Errorf("video dirs = %q, %q", cfg.Video.OutputDir, cfg.Video.TempDir)
	}
	if cfg.Video.Resolution != "1080x1920" {
		t.Errorf("resolution = %q", cfg.Video.Resolution)
	}
	if cfg.Store.Backend != "firestore" {
		t.Errorf("store backend = %q", cfg.Store.Backend)
	}
	if cfg.Worker.PollSeconds != defaultPollSeconds {
		t.Errorf("poll seconds = %d", cfg.Worker.PollSeconds)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Groq.Model = "custom-model"
	cfg.Speech.Language = "de-DE"
	cfg.Store.Backend = "memory"
	cfg.Worker.PollSeconds = 5

	applyDefaults(cfg)

	if cfg.Groq.Model != "custom-model" {
		t.Errorf("groq model overwritten: %q", cfg.Groq.Model)
	}
	if cfg.Speech.Language != "de-DE" {
		t.Errorf("language overwritten: %q", cfg.Speech.Language)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend overwritten: %q", cfg.Store.Backend)
	}
	if cfg.Worker.PollSeconds != 5 {
		t.Errorf("poll seconds overwritten: %d", cfg.Worker.PollSeconds)
	}
}
