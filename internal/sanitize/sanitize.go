// Package sanitize extracts a structured summary record from the raw text
// returned by the language model. The model does not guarantee well-formed
// JSON, so extraction runs an ordered list of repair tiers and gives up only
// when every tier has failed.
package sanitize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/audiobrief/internal/domain"
)

// ErrUnparseableResponse is returned when no tier could recover a record.
var ErrUnparseableResponse = errors.New("unparseable response")

// errNoObject is returned by the JSON tiers when the text holds no {...} span.
var errNoObject = errors.New("no JSON object found")

// Tier is one fallback strategy. Extract must be pure.
type Tier struct {
	Name    string
	Extract func(raw string) (domain.SummaryRecord, error)
}

// DefaultTiers is the extraction order used by Extract.
var DefaultTiers = []Tier{
	{Name: "repaired_json", Extract: RepairedJSON},
	{Name: "ascii_json", Extract: ASCIIJSON},
	{Name: "field_patterns", Extract: FieldPatterns},
}

// Extract runs DefaultTiers in order and returns the first record recovered.
func Extract(raw string) (domain.SummaryRecord, error) {
	return ExtractWith(DefaultTiers, raw)
}

// ExtractWith runs the given tiers in order. The returned error wraps
// ErrUnparseableResponse and the error of the last tier.
func ExtractWith(tiers []Tier, raw string) (domain.SummaryRecord, error) {
	var lastErr error
	for _, tier := range tiers {
		record, err := tier.Extract(raw)
		if err == nil {
			return record, nil
		}
		lastErr = fmt.Errorf("%s: %w", tier.Name, err)
	}
	if lastErr == nil {
		return domain.SummaryRecord{}, ErrUnparseableResponse
	}
	return domain.SummaryRecord{}, fmt.Errorf("%w: %v", ErrUnparseableResponse, lastErr)
}

var (
	// textFieldRegex matches a quoted text-bearing field, tolerating raw
	// control characters and escaped quotes inside the value.
	textFieldRegex = regexp.MustCompile(`("(?:summary_text|title|author)"\s*:\s*")((?:[^"\\]|\\.)*)(")`)

	lineBreakReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

	multiSpaceRegex = regexp.MustCompile(` {2,}`)

	fieldPatterns = map[string]*regexp.Regexp{
		"title":        regexp.MustCompile(`"title"\s*:\s*"([^"]*)"`),
		"author":       regexp.MustCompile(`"author"\s*:\s*"([^"]*)"`),
		"summary_text": regexp.MustCompile(`"summary_text"\s*:\s*"([^"]*)"`),
	}
)

// RepairedJSON isolates the outermost object, normalizes non-breaking spaces,
// replaces raw line breaks inside the text fields and decodes strictly.
func RepairedJSON(raw string) (domain.SummaryRecord, error) {
	repaired, err := repair(raw)
	if err != nil {
		return domain.SummaryRecord{}, err
	}
	return decode(repaired)
}

// ASCIIJSON is RepairedJSON with every rune outside printable ASCII mapped
// to a space and repeated spaces collapsed before decoding.
func ASCIIJSON(raw string) (domain.SummaryRecord, error) {
	repaired, err := repair(raw)
	if err != nil {
		return domain.SummaryRecord{}, err
	}
	return decode(asciiOnly(repaired))
}

// FieldPatterns pulls title, author and summary_text out individually. It
// succeeds only when all three are present.
func FieldPatterns(raw string) (domain.SummaryRecord, error) {
	text := strings.ReplaceAll(raw, "\u00a0", " ")

	values := make(map[string]string, len(fieldPatterns))
	for name, pattern := range fieldPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			return domain.SummaryRecord{}, fmt.Errorf("field %q not found", name)
		}
		values[name] = cleanValue(match[1])
	}

	record := domain.SummaryRecord{
		Determinable:    true,
		SummaryPossible: true,
		Title:           values["title"],
		Author:          values["author"],
		SummaryText:     values["summary_text"],
	}
	if record.SummaryText == "" {
		return domain.SummaryRecord{}, errors.New("summary_text is empty")
	}
	return record, nil
}

func repair(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", errNoObject
	}

	text := raw[start : end+1]
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = textFieldRegex.ReplaceAllStringFunc(text, func(field string) string {
		parts := textFieldRegex.FindStringSubmatch(field)
		return parts[1] + lineBreakReplacer.Replace(parts[2]) + parts[3]
	})
	return text, nil
}

// wireRecord distinguishes absent fields from zero values.
type wireRecord struct {
	Determinable    *bool   `json:"determinable"`
	SummaryPossible *bool   `json:"summary_possible"`
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	SummaryText     *string `json:"summary_text"`
	Reason          *string `json:"reason"`
}

func decode(text string) (domain.SummaryRecord, error) {
	var wire wireRecord
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return domain.SummaryRecord{}, fmt.Errorf("decode: %w", err)
	}
	// A decoded object without summary_possible is a refusal, not noise.
	record := domain.SummaryRecord{
		Title:           deref(wire.Title),
		Author:          deref(wire.Author),
		SummaryText:     deref(wire.SummaryText),
		Reason:          deref(wire.Reason),
	}
	if wire.SummaryPossible != nil {
		record.SummaryPossible = *wire.SummaryPossible
	}
	if wire.Determinable != nil {
		record.Determinable = *wire.Determinable
	}
	if record.SummaryPossible && strings.TrimSpace(record.SummaryText) == "" {
		return domain.SummaryRecord{}, errors.New("summary_text is required when summary_possible is true")
	}
	return record, nil
}

func asciiOnly(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return ' '
		}
		return r
	}, text)
	return multiSpaceRegex.ReplaceAllString(mapped, " ")
}

func cleanValue(value string) string {
	return strings.TrimSpace(asciiOnly(value))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
