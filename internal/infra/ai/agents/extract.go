package agents

import (
	"encoding/json"
	"regexp"

	"github.com/auditops/envsegd/internal/domain/analysis"
)

// Model output is not guaranteed well-formed JSON: it may be fenced,
// wrapped in prose, or truncated. Extract applies an ordered fallback
// search, trusting explicit fencing before bare bracket scanning so that
// decorative braces in prose are not matched first. All failures degrade
// to an empty slice; this function never fails.
var (
	reFenceMarkers = regexp.MustCompile("```(?:json)?\\s*|\\s*```")
	reFencedJSON   = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	reArray        = regexp.MustCompile(`\[\s*\{[\s\S]*?\}\s*\]`)
	reObject       = regexp.MustCompile(`\{[\s\S]*?\}`)
)

// Extract recovers a list of result records from raw response text.
func Extract(text string) []analysis.RawRecord {
	text = reFenceMarkers.ReplaceAllString(text, "")

	var candidate string
	if m := reFencedJSON.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else if m := reArray.FindString(text); m != "" {
		candidate = m
	} else if m := reObject.FindString(text); m != "" {
		candidate = m
	} else if json.Valid([]byte(text)) {
		candidate = text
	} else {
		return nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil
	}

	switch v := parsed.(type) {
	case []any:
		return toRecords(v)
	case map[string]any:
		if results, ok := v["results"]; ok {
			list, ok := results.([]any)
			if !ok {
				return nil
			}
			return toRecords(list)
		}
		return []analysis.RawRecord{v}
	}
	return nil
}

func toRecords(list []any) []analysis.RawRecord {
	out := make([]analysis.RawRecord, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
