// Package speech turns narration text into audio. The Synthesizer interface
// is the seam the pipeline depends on; the Google Cloud implementation backs
// production.
package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"regexp"
	"strings"
)

const DefaultWordsPerMinute = 150.0

// Result is the output of one synthesis call.
type Result struct {
	Audio     []byte
	Duration  float64
	VoiceName string
	Gender    string
	Hash      string
}

// WordTiming marks when a single word is spoken, in seconds from the start
// of the audio track.
type WordTiming struct {
	Word      string
	StartTime float64
	EndTime   float64
}

// Synthesizer produces narration audio for a text in a given language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*Result, error)
}

// neuralVoices holds the preferred Neural2 voice pool per language. Chinese
// has no Neural2 tier, so it uses WaveNet voices.
var neuralVoices = map[string][]string{
	"en-US": {
		"en-US-Neural2-A", "en-US-Neural2-C", "en-US-Neural2-D", "en-US-Neural2-E",
		"en-US-Neural2-F", "en-US-Neural2-G", "en-US-Neural2-H", "en-US-Neural2-I", "en-US-Neural2-J",
	},
	"en-GB": {"en-GB-Neural2-A", "en-GB-Neural2-B", "en-GB-Neural2-C", "en-GB-Neural2-D"},
	"en-AU": {"en-AU-Neural2-A", "en-AU-Neural2-B", "en-AU-Neural2-C", "en-AU-Neural2-D"},
	"es-US": {"es-US-Neural2-A", "es-US-Neural2-B", "es-US-Neural2-C"},
	"es-ES": {"es-ES-Neural2-A", "es-ES-Neural2-B", "es-ES-Neural2-C", "es-ES-Neural2-D"},
	"fr-FR": {"fr-FR-Neural2-A", "fr-FR-Neural2-B", "fr-FR-Neural2-C", "fr-FR-Neural2-D"},
	"de-DE": {"de-DE-Neural2-A", "de-DE-Neural2-B", "de-DE-Neural2-C", "de-DE-Neural2-D"},
	"it-IT": {"it-IT-Neural2-A", "it-IT-Neural2-C"},
	"pt-BR": {"pt-BR-Neural2-A", "pt-BR-Neural2-B", "pt-BR-Neural2-C"},
	"ja-JP": {"ja-JP-Neural2-B", "ja-JP-Neural2-C", "ja-JP-Neural2-D"},
	"ko-KR": {"ko-KR-Neural2-A", "ko-KR-Neural2-B", "ko-KR-Neural2-C"},
	"zh-CN": {"cmn-CN-Wavenet-A", "cmn-CN-Wavenet-B", "cmn-CN-Wavenet-C", "cmn-CN-Wavenet-D"},
	"hi-IN": {"hi-IN-Neural2-A", "hi-IN-Neural2-B", "hi-IN-Neural2-C", "hi-IN-Neural2-D"},
}

// studioVoices are the conversational Studio tier, only available for en-US.
var studioVoices = map[string][]string{
	"en-US": {"en-US-Studio-M", "en-US-Studio-O", "en-US-Studio-Q"},
}

// PickVoice selects a random voice for the language. Studio voices take
// priority when requested and available. An empty result means the caller
// should fall back to gender-based selection.
func PickVoice(language string, useStudio bool) string {
	if useStudio {
		if pool, ok := studioVoices[language]; ok {
			return pool[rand.Intn(len(pool))]
		}
	}
	if pool, ok := neuralVoices[language]; ok {
		return pool[rand.Intn(len(pool))]
	}
	return ""
}

var maleSuffixes = []string{"-A", "-C", "-E", "-G", "-I", "-Studio-M", "-Studio-O"}
var femaleSuffixes = []string{"-B", "-D", "-F", "-H", "-J", "-Studio-Q"}

// VoiceGender infers speaker gender from the voice naming convention.
func VoiceGender(voiceName string) string {
	for _, s := range femaleSuffixes {
		if strings.Contains(voiceName, s) {
			return "FEMALE"
		}
	}
	for _, s := range maleSuffixes {
		if strings.Contains(voiceName, s) {
			return "MALE"
		}
	}
	return "UNKNOWN"
}

// resourcesBoilerplate matches the trailing resources section blog posts
// append, which should never be narrated.
var resourcesBoilerplate = regexp.MustCompile(`(?s)Resources.*$`)

// StripBoilerplate removes the trailing resources block and collapses the
// whitespace left behind.
func StripBoilerplate(text string) string {
	return strings.TrimSpace(resourcesBoilerplate.ReplaceAllString(text, ""))
}

// ContentHash returns a stable fingerprint of the narrated text, used to
// detect when a cached audio file is still valid.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EstimateAudioDuration approximates the length of an MP3 buffer from its
// byte size at the encoder's nominal bitrate. The muxer replaces this with
// a probed value once the file is on disk.
func EstimateAudioDuration(audio []byte) float64 {
	bitrate := 128000.0
	return float64(len(audio)*8) / bitrate
}

// EstimateTimingsFromDuration spreads word timings across a known duration,
// weighting longer words slightly heavier so cues track the narration.
func EstimateTimingsFromDuration(text string, duration float64) []WordTiming {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	avgWordDuration := duration / float64(len(words))
	timings := make([]WordTiming, len(words))
	currentTime := 0.0

	for i, word := range words {
		wordDuration := avgWordDuration * (0.8 + 0.4*float64(len(word))/5.0)
		timings[i] = WordTiming{
			Word:      word,
			StartTime: currentTime,
			EndTime:   currentTime + wordDuration,
		}
		currentTime += wordDuration
	}

	if currentTime > 0 {
		scale := duration / currentTime
		for i := range timings {
			timings[i].StartTime *= scale
			timings[i].EndTime *= scale
		}
	}

	return timings
}
