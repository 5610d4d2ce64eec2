package vision

import (
	"strings"
)

// Fallbacks used when the model omits a field.
const (
	FallbackCrop     = "Unknown"
	FallbackDisease  = "No disease found"
	FallbackSolution = "No solution needed."
)

// Diagnosis is the three-field answer shown to the user.
type Diagnosis struct {
	Crop     string
	Disease  string
	Solution string
}

// ParseResponse extracts the Crop, Disease and Solution lines from a model
// reply. For each field the first line whose label (the text before the first
// colon) matches case-insensitively wins; the value is the rest of that line,
// trimmed. Missing or empty fields get their fallback.
func ParseResponse(raw string) Diagnosis {
	var crop, disease, solution string

	for _, line := range strings.Split(raw, "\n") {
		label, value, ok := ParseLine(line)
		if !ok {
			continue
		}
		switch label {
		case "crop":
			if crop == "" {
				crop = value
			}
		case "disease":
			if disease == "" {
				disease = value
			}
		case "solution":
			if solution == "" {
				solution = value
			}
		}
	}

	return Diagnosis{
		Crop:     orDefault(crop, FallbackCrop),
		Disease:  orDefault(disease, FallbackDisease),
		Solution: orDefault(solution, FallbackSolution),
	}
}

// ParseLine splits "Label: value" into a lower-cased label and a trimmed
// value. List markers ("-", "*", "1.", "2)") and markdown emphasis around the
// label are ignored, so "**Crop:** Wheat" and "1. crop : Wheat" both yield
// ("crop", "Wheat"). The value is otherwise returned as written.
func ParseLine(line string) (label, value string, ok bool) {
	before, after, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}

	label = stripListMarker(before)
	inner := strings.TrimLeft(label, "*")
	opened := len(label) - len(inner)
	label = strings.TrimRight(inner, "*")
	closed := len(inner) - len(label)

	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return "", "", false
	}

	value = strings.TrimSpace(after)
	// "**Crop:** Wheat" closes the label's emphasis after the colon.
	for n := opened - closed; n > 0 && strings.HasPrefix(value, "*"); n-- {
		value = value[1:]
	}
	return label, strings.TrimSpace(value), true
}

func stripListMarker(s string) string {
	s = strings.TrimLeft(s, " \t-•#>")
	if strings.HasPrefix(s, "* ") {
		s = s[2:]
	}
	digits := len(s) - len(strings.TrimLeft(s, "0123456789"))
	if digits > 0 && digits < len(s) && (s[digits] == '.' || s[digits] == ')') {
		s = s[digits+1:]
	}
	return strings.TrimSpace(s)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
