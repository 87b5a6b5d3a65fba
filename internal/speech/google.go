package speech

import (
	"context"
	"fmt"
	"log/slog"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Google synthesizes narration through the Cloud Text-to-Speech API.
type Google struct {
	client    *texttospeech.Client
	useStudio bool
	logger    *slog.Logger
}

type GoogleOptions struct {
	CredentialsFile string
	// UseStudio prefers the conversational Studio tier where available.
	UseStudio bool
	Logger    *slog.Logger
}

func NewGoogle(ctx context.Context, opts GoogleOptions) (*Google, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Google{client: client, useStudio: opts.UseStudio, logger: logger}, nil
}

func (g *Google) Close() error { return g.client.Close() }

// Synthesize narrates the text in the given language. The trailing resources
// boilerplate is stripped before synthesis so listeners never hear link
// lists read aloud.
func (g *Google) Synthesize(ctx context.Context, text, language string) (*Result, error) {
	if language == "" {
		language = "en-US"
	}
	narration := StripBoilerplate(text)
	if narration == "" {
		return nil, fmt.Errorf("no narratable text after boilerplate strip")
	}

	voiceName := PickVoice(language, g.useStudio)
	voice := &texttospeechpb.VoiceSelectionParams{LanguageCode: language}
	gender := "UNKNOWN"
	if voiceName != "" {
		voice.Name = voiceName
		gender = VoiceGender(voiceName)
	} else {
		// Unknown language: let the API pick by gender instead of a
		// named voice.
		voice.SsmlGender = texttospeechpb.SsmlVoiceGender_FEMALE
		gender = "FEMALE"
	}

	g.logger.Info("synthesizing narration",
		"language", language,
		"voice", voiceName,
		"gender", gender,
		"chars", len(narration))

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: narration},
		},
		Voice: voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  1.0,
			Pitch:         0.0,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("empty audio content from text-to-speech")
	}

	return &Result{
		Audio:     resp.AudioContent,
		Duration:  EstimateAudioDuration(resp.AudioContent),
		VoiceName: voiceName,
		Gender:    gender,
		Hash:      ContentHash(narration),
	}, nil
}
