package intent

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/resolve"
)

const defaultFallbackThreshold = 0.55

// Option is a functional option for configuring a [Classifier].
type Option func(*Classifier)

// WithFallbackThreshold sets the minimum similarity (0–1) the fuzzy fallback
// stage requires before accepting a template match. Default: 0.55.
func WithFallbackThreshold(threshold float64) Option {
	return func(c *Classifier) {
		c.fallbackThreshold = threshold
	}
}

// Classifier maps normalized transcripts to [Intent] values. It is read-only
// after construction and safe for concurrent use.
type Classifier struct {
	resolver          *resolve.Resolver
	fallbackThreshold float64
	patterns          []pattern
}

// pattern pairs a compiled regex with the builder invoked when it matches.
type pattern struct {
	// name is a human-readable label for logging and metrics.
	name string

	// regex is the compiled rule. Named groups are passed to build.
	regex *regexp.Regexp

	// build constructs the Intent from the matched text and named groups.
	build func(c *Classifier, text string, groups map[string]string) Intent
}

// New returns a Classifier that resolves captured spans with r.
func New(r *resolve.Resolver, opts ...Option) *Classifier {
	c := &Classifier{
		resolver:          r,
		fallbackThreshold: defaultFallbackThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	c.patterns = defaultPatterns()
	return c
}

// exactPhrases maps canonical spoken commands to their kinds. Matched after
// case-folding and whitespace trimming.
var exactPhrases = map[string]Kind{
	"stop":                       KindStop,
	"cancel":                     KindStop,
	"never mind":                 KindStop,
	"go to sleep":                KindStop,
	"what time is it":            KindGetTime,
	"what's the weather":         KindGetWeather,
	"what is the weather":        KindGetWeather,
	"tell me a joke":             KindTellJoke,
	"record a memory":            KindBeginGuidedRecording,
	"record a story":             KindBeginGuidedRecording,
	"play all birthday messages": KindPlayAllMessages,
	"play all messages":          KindPlayAllMessages,
	"play the last recording":    KindPlayLastRecording,
	"list stories":               KindListStories,
	"list messages":              KindListStories,
}

// Classify runs the staged classification over corrected and returns the
// resulting [Intent]. corrected should already have passed transcript
// normalization; Classify never rewrites its input.
func (c *Classifier) Classify(corrected string) Intent {
	text := strings.ToLower(strings.TrimSpace(corrected))
	if text == "" {
		return Intent{Kind: KindUnknown}
	}

	// Stage 1: exact phrases.
	if kind, ok := exactPhrases[text]; ok {
		return Intent{Kind: kind, Confidence: 1, Method: "exact"}
	}

	// Stage 2: structural rules, most specific first.
	for _, p := range c.patterns {
		m := p.regex.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		groups := make(map[string]string)
		for i, name := range p.regex.SubexpNames() {
			if name != "" && i < len(m) {
				groups[name] = m[i]
			}
		}
		return p.build(c, text, groups)
	}

	// Stage 3: fuzzy fallback against command templates.
	return c.fuzzyFallback(text)
}

// defaultPatterns returns the built-in structural rules in priority order.
func defaultPatterns() []pattern {
	return []pattern{
		{
			name:  "stop",
			regex: regexp.MustCompile(`^(?:stop|cancel|quiet|shut up|be quiet)\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindStop, Confidence: 0.95, Method: "pattern"}
			},
		},
		{
			name:  "play-last-recording",
			regex: regexp.MustCompile(`\b(?:play|hear)\b.*\b(?:last|latest|recent|recorded)\b|\b(?:last|latest)\s+recording\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindPlayLastRecording, Confidence: 0.95, Method: "pattern"}
			},
		},
		{
			name:  "play-all-messages",
			regex: regexp.MustCompile(`\b(?:play|hear)\b.*\ball\b|\ball\s+(?:the\s+)?birthday\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindPlayAllMessages, Confidence: 0.9, Method: "pattern"}
			},
		},
		{
			name:  "record-for-person",
			regex: regexp.MustCompile(`\brecord\b.*\bfor\s+(?P<person>.+)$`),
			build: func(c *Classifier, text string, groups map[string]string) Intent {
				in := Intent{Kind: KindRecordMessage, Confidence: 0.9, Method: "pattern"}
				if e, ok := c.resolver.Person(groups["person"]); ok {
					in.Person = e.Name
				}
				return in
			},
		},
		{
			name:  "begin-guided-recording",
			regex: regexp.MustCompile(`\b(?:record|create|make|save)\b.*\b(?:memory|story|recording|message)\b|\bstart\s+recording\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindBeginGuidedRecording, Confidence: 0.9, Method: "pattern"}
			},
		},
		{
			name:  "list-stories",
			regex: regexp.MustCompile(`\b(?:list|show|how many)\b.*\b(?:stories|story|memories|messages|recordings)\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindListStories, Confidence: 0.9, Method: "pattern"}
			},
		},
		{
			name:  "message-from-person",
			regex: regexp.MustCompile(`\b(?:message|birthday)\b.*\bfrom\s+(?P<person>.+)$`),
			build: func(c *Classifier, text string, groups map[string]string) Intent {
				in := Intent{Kind: KindPlayMessage, Confidence: 0.9, Method: "pattern"}
				if e, ok := c.resolver.Person(groups["person"]); ok {
					in.Person = e.Name
				} else {
					in.PersonUnresolved = true
				}
				return in
			},
		},
		{
			name:  "play-from-person",
			regex: regexp.MustCompile(`\b(?:play|tell|get|hear|give)\b.*?\b(?:from|by)\s+(?P<person>.+)$`),
			build: func(c *Classifier, text string, groups map[string]string) Intent {
				in := Intent{Kind: KindPlayStory, Confidence: 0.9, Method: "pattern"}
				if e, ok := c.resolver.Person(groups["person"]); ok {
					in.Person = e.Name
				} else {
					in.PersonUnresolved = true
				}
				if cat, ok := c.resolver.Category(text); ok {
					in.Category = cat
				}
				if l, ok := c.resolver.Length(text); ok {
					in.Length = l
				}
				return in
			},
		},
		{
			name:  "get-time",
			regex: regexp.MustCompile(`\btime\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindGetTime, Confidence: 0.9, Method: "pattern"}
			},
		},
		{
			name:  "get-weather",
			regex: regexp.MustCompile(`\b(?:weather|temperature|forecast)\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindGetWeather, Confidence: 0.9, Method: "pattern"}
			},
		},
		{
			name:  "tell-joke",
			regex: regexp.MustCompile(`\bjoke\b`),
			build: func(c *Classifier, _ string, _ map[string]string) Intent {
				return Intent{Kind: KindTellJoke, Confidence: 0.9, Method: "pattern"}
			},
		},
		{
			name:  "play-generic",
			regex: regexp.MustCompile(`\b(?:play|tell)\b\s+(?:me\s+)?(?:a|an|the|some)?\s*(?P<rest>.+)$`),
			build: func(c *Classifier, text string, groups map[string]string) Intent {
				rest := groups["rest"]
				in := Intent{Kind: KindPlayStory, Confidence: 0.8, Method: "pattern"}
				if e, ok := c.resolver.Person(rest); ok {
					in.Person = e.Name
				}
				cat, haveCat := c.resolver.Category(rest)
				if haveCat {
					in.Category = cat
				}
				if l, ok := c.resolver.Length(rest); ok {
					in.Length = l
				}
				// "play X" with neither a person nor a category is noise,
				// not a playback request.
				if in.Person == "" && !haveCat {
					return Intent{Kind: KindUnknown}
				}
				return in
			},
		},
	}
}

// fallbackTemplate pairs a canonical phrasing with its kind for the fuzzy
// stage.
type fallbackTemplate struct {
	phrase string
	kind   Kind
}

var fallbackTemplates = []fallbackTemplate{
	{"tell me a story", KindPlayStory},
	{"play a story", KindPlayStory},
	{"play a birthday message", KindPlayMessage},
	{"play all the birthday messages", KindPlayAllMessages},
	{"play the last recording", KindPlayLastRecording},
	{"how many stories do you have", KindListStories},
	{"list all the stories", KindListStories},
	{"record a new memory", KindBeginGuidedRecording},
	{"what time is it right now", KindGetTime},
	{"what is the weather like", KindGetWeather},
	{"tell me a funny joke", KindTellJoke},
	{"stop listening", KindStop},
}

// fuzzyFallback scores text against every template with token-set similarity
// and accepts the best template at or above the fallback threshold.
func (c *Classifier) fuzzyFallback(text string) Intent {
	minScore := int(c.fallbackThreshold * 100)

	var (
		best      fallbackTemplate
		bestScore int
	)
	for _, tpl := range fallbackTemplates {
		score := fuzzy.TokenSetRatio(text, tpl.phrase)
		if score >= minScore && score > bestScore {
			best = tpl
			bestScore = score
		}
	}
	if bestScore == 0 {
		return Intent{Kind: KindUnknown}
	}

	in := Intent{
		Kind:       best.kind,
		Confidence: float64(bestScore) / 100,
		Method:     "fuzzy",
	}
	// Person-bearing kinds still get slot extraction from the full text.
	switch best.kind {
	case KindPlayStory, KindPlayMessage, KindRecordMessage:
		if e, ok := c.resolver.Person(text); ok {
			in.Person = e.Name
		}
		if cat, ok := c.resolver.Category(text); ok {
			in.Category = cat
		}
	}
	return in
}
