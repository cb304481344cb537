package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTextLength is the longest text accepted for an asynchronous synthesis task.
const MaxTextLength = 100000

// Engine names accepted in SynthesisRequest.VoiceType.
const (
	EngineStandard   = "standard"
	EngineNeural     = "neural"
	EngineGenerative = "generative"
	EngineLongForm   = "long-form"
)

var languageCodePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2}(-[A-Z]{3})?)?$`)

// SynthesisRequest holds the parameters of a text-to-speech job. It is kept
// verbatim on the task record for history display.
type SynthesisRequest struct {
	Text      string `json:"text"      validate:"required"`
	Voice     string `json:"voice"     validate:"required"`
	Language  string `json:"language"  validate:"required"`
	VoiceType string `json:"voiceType" validate:"required"`
}

// Normalize returns a copy with surrounding whitespace trimmed and the engine
// lower-cased, the form the provider expects.
func (r SynthesisRequest) Normalize() SynthesisRequest {
	return SynthesisRequest{
		Text:      r.Text,
		Voice:     strings.TrimSpace(r.Voice),
		Language:  strings.TrimSpace(r.Language),
		VoiceType: strings.ToLower(strings.TrimSpace(r.VoiceType)),
	}
}

// Validate checks the request. Callers should Normalize first.
func (r SynthesisRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return NewValidationError("text", "is required")
	}

	if utf8.RuneCountInString(r.Text) > MaxTextLength {
		return NewValidationError("text", "is too long")
	}

	if r.Voice == "" {
		return NewValidationError("voice", "is required")
	}

	if !languageCodePattern.MatchString(r.Language) {
		return NewValidationError("language", "has invalid format")
	}

	switch r.VoiceType {
	case EngineStandard, EngineNeural, EngineGenerative, EngineLongForm:
	default:
		return NewValidationError("voiceType", "must be one of standard, neural, generative, long-form")
	}

	return nil
}
