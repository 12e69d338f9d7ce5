// Package intent turns normalized transcripts into structured commands.
//
// Classification is staged, cheapest first:
//
//  1. Exact phrases — a table of canonical commands matched after
//     case-folding. Data, not code: adding a phrase is a table edit.
//  2. Structural rules — ordered regular expressions with capture groups.
//     Captured spans are handed to the entity resolver, so "get from beau"
//     lands on the roster entry Beau even though the rule itself knows
//     nothing about the roster.
//  3. Fuzzy fallback — token-set similarity against template phrasings of
//     every command, accepted only above the configured fallback threshold.
//
// Anything that survives none of the stages is [KindUnknown]; the dialogue
// layer re-prompts rather than guessing.
package intent

import (
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// Kind identifies the command a transcript resolved to.
type Kind string

// Known command kinds.
const (
	KindUnknown              Kind = "unknown"
	KindPlayStory            Kind = "play_story"
	KindPlayMessage          Kind = "play_message"
	KindPlayAllMessages      Kind = "play_all_messages"
	KindPlayLastRecording    Kind = "play_last_recording"
	KindListStories          Kind = "list_stories"
	KindRecordMessage        Kind = "record_message"
	KindBeginGuidedRecording Kind = "begin_guided_recording"
	KindGetTime              Kind = "get_time"
	KindGetWeather           Kind = "get_weather"
	KindTellJoke             Kind = "tell_joke"
	KindStop                 Kind = "stop"
)

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindUnknown, KindPlayStory, KindPlayMessage, KindPlayAllMessages,
		KindPlayLastRecording, KindListStories, KindRecordMessage,
		KindBeginGuidedRecording, KindGetTime, KindGetWeather,
		KindTellJoke, KindStop:
		return true
	}
	return false
}

// Intent is a classified command with its resolved slots.
type Intent struct {
	// Kind is the command. [KindUnknown] means no stage accepted the text.
	Kind Kind

	// Person is the canonical roster name the command targets, when the
	// command carries one and it resolved. Empty otherwise.
	Person string

	// PersonUnresolved reports that the command explicitly named someone the
	// resolver could not match. Person is empty in that case, and playback
	// must answer with the not-found message rather than run an unfiltered
	// query.
	PersonUnresolved bool

	// Category is the resolved record category, when spoken. Empty means
	// the dispatcher applies its default.
	Category store.Category

	// Length is the resolved length bucket, when spoken.
	Length store.LengthBucket

	// Confidence is the classifier's confidence in [0, 1]. Exact matches
	// carry 1.
	Confidence float64

	// Method identifies the stage that classified the text:
	// "exact", "pattern", or "fuzzy". Empty for [KindUnknown].
	Method string
}
