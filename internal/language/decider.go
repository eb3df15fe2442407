// Package language decides whether a document needs translation before
// chunking, degrading gracefully when detection or translation fails.
package language

import (
	"context"
	"log/slog"
	"time"
)

// LanguageUnknown is reported when detection fails.
const LanguageUnknown = "unknown"

// TranslationStats carries optional metadata about a translation call.
type TranslationStats struct {
	SourceChars     int           `json:"source_chars"`
	TranslatedChars int           `json:"translated_chars"`
	Duration        time.Duration `json:"duration"`
}

// Translator is the translation backend consumed by the decider.
// Implementations must be safe for concurrent use.
type Translator interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, targetLang string) (string, TranslationStats, error)
}

// Settings control the translate/skip decision.
type Settings struct {
	Enabled        bool
	Force          bool // Translate even when the detected language matches the target.
	TargetLanguage string
}

// Decision is the outcome of Decide. When Translated is false, FinalText
// is the input text unchanged.
type Decision struct {
	DetectedLanguage string
	FinalText        string
	Translated       bool
	Stats            *TranslationStats
}

// Decider detects the source language and translates when needed.
type Decider struct {
	translator Translator
	settings   Settings
	log        *slog.Logger
}

func NewDecider(translator Translator, settings Settings, log *slog.Logger) *Decider {
	if log == nil {
		log = slog.Default()
	}
	return &Decider{
		translator: translator,
		settings:   settings,
		log:        log,
	}
}

// Decide runs detection and, when warranted, translation. Translation is
// best-effort enrichment: neither a detection nor a translation failure is
// fatal; the worst case is indexing the original-language text.
func (d *Decider) Decide(ctx context.Context, text string) Decision {
	if d.translator == nil {
		return Decision{DetectedLanguage: LanguageUnknown, FinalText: text}
	}

	detected, err := d.translator.DetectLanguage(ctx, text)
	if err != nil {
		d.log.Warn("language detection failed, skipping translation", "error", err)
		return Decision{DetectedLanguage: LanguageUnknown, FinalText: text}
	}

	if !d.settings.Enabled {
		return Decision{DetectedLanguage: detected, FinalText: text}
	}
	if detected == d.settings.TargetLanguage && !d.settings.Force {
		return Decision{DetectedLanguage: detected, FinalText: text}
	}

	translated, stats, err := d.translator.Translate(ctx, text, d.settings.TargetLanguage)
	if err != nil {
		// Detection succeeded; keep its result and only drop the translation.
		d.log.Warn("translation failed, keeping original text",
			"detected_language", detected, "error", err)
		return Decision{DetectedLanguage: detected, FinalText: text}
	}

	return Decision{
		DetectedLanguage: detected,
		FinalText:        translated,
		Translated:       true,
		Stats:            &stats,
	}
}
