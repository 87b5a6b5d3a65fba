// Package captions builds timed on-screen text cues from a narration
// script. Cues are three-word phrases, sanitized so they survive the
// drawtext filter untouched.
package captions

import (
	"strings"
	"unicode"

	"postreel/internal/model"
	"postreel/internal/speech"
)

const (
	wordsPerCue = 3
	maxCueChars = 40
)

// FromWordTimings groups word timings into cues. Preferred over FromScript
// because the cue boundaries track the actual narration pace.
func FromWordTimings(timings []speech.WordTiming, duration float64) []model.CaptionCue {
	var cues []model.CaptionCue
	for i := 0; i < len(timings); i += wordsPerCue {
		end := i + wordsPerCue
		if end > len(timings) {
			end = len(timings)
		}
		group := timings[i:end]

		words := make([]string, 0, len(group))
		for _, w := range group {
			words = append(words, w.Word)
		}
		text := Sanitize(strings.Join(words, " "))
		if text == "" {
			continue
		}
		cues = append(cues, model.CaptionCue{
			Text:  text,
			Start: group[0].StartTime,
			End:   group[len(group)-1].EndTime,
		})
	}
	return clamp(cues, duration)
}

// FromScript divides the audio duration evenly across three-word phrases.
// Used when no word timings are available.
func FromScript(script string, duration float64) []model.CaptionCue {
	words := strings.Fields(script)
	if len(words) == 0 || duration <= 0 {
		return nil
	}

	var phrases []string
	for i := 0; i < len(words); i += wordsPerCue {
		end := i + wordsPerCue
		if end > len(words) {
			end = len(words)
		}
		phrases = append(phrases, strings.Join(words[i:end], " "))
	}

	per := duration / float64(len(phrases))
	var cues []model.CaptionCue
	for i, phrase := range phrases {
		text := Sanitize(phrase)
		if text == "" {
			continue
		}
		cues = append(cues, model.CaptionCue{
			Text:  text,
			Start: float64(i) * per,
			End:   float64(i+1) * per,
		})
	}
	return clamp(cues, duration)
}

// stripper drops characters that break drawtext filter arguments or read
// poorly on screen.
var stripper = strings.NewReplacer(
	`"`, "", "'", "", "`", "",
	":", "", ";", "",
	"[", "", "]", "", "(", "", ")", "", "{", "", "}", "",
	",", "",
)

// Sanitize normalizes a cue: strips quotes, colons, brackets and commas,
// collapses whitespace, capitalizes the first letter and truncates to the
// on-screen budget.
func Sanitize(text string) string {
	text = stripper.Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	if len(runes) > maxCueChars {
		runes = runes[:maxCueChars]
	}
	return strings.TrimSpace(string(runes))
}

// clamp enforces the cue invariants: monotonic starts, no overlap between
// neighbors and no cue extending past the audio.
func clamp(cues []model.CaptionCue, duration float64) []model.CaptionCue {
	out := cues[:0]
	prevEnd := 0.0
	for _, cue := range cues {
		if cue.Start < prevEnd {
			cue.Start = prevEnd
		}
		if duration > 0 && cue.End > duration {
			cue.End = duration
		}
		if cue.End <= cue.Start {
			continue
		}
		prevEnd = cue.End
		out = append(out, cue)
	}
	return out
}
