package rewrite

import (
	"regexp"
	"strings"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// ruleClasses are applied in order; within a class the first matching rule wins.
var ruleClasses = [][]rule{
	// command prefixes
	{
		{regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:search\s+for|look\s+for|find|show|get|give)\s+(?:me\b\s*)?(?:all\b\s*)?(?:the\b\s*)?`), ""},
	},
	// trailing date qualifiers
	{
		{regexp.MustCompile(`(?i)\s+(?:from|since|before|after|in)\s+(?:\d{4}|last\s+(?:week|month|year)|this\s+(?:week|month|year))\s*$`), ""},
		{regexp.MustCompile(`(?i)\s+(?:today|yesterday|this\s+(?:week|month|year)|last\s+(?:week|month|year))\s*$`), ""},
	},
	// trailing location qualifiers
	{
		{regexp.MustCompile(`(?i)\s+(?:in|at|near)\s+[\pL][\pL\-']*(?:\s+[\pL][\pL\-']*)?\s*$`), ""},
	},
	// comparisons
	{
		{regexp.MustCompile(`(?i)^\s*compare\s+(.+?)\s+(?:and|with|vs\.?|versus)\s+(.+?)\s*$`), "$1 OR $2"},
	},
}

// applyPatterns runs every rule class over text. A rule that would leave
// nothing behind is skipped.
func applyPatterns(text string) string {
	out := text
	for _, class := range ruleClasses {
		for _, r := range class {
			if !r.re.MatchString(out) {
				continue
			}
			next := strings.Join(strings.Fields(r.re.ReplaceAllString(out, r.repl)), " ")
			if next == "" {
				continue
			}
			out = next
			break
		}
	}
	return out
}

// Intent is the coarse query class used to shape the final query string.
type Intent string

// Intent values.
const (
	IntentComparison    Intent = "comparison"
	IntentFilter        Intent = "filter"
	IntentInformational Intent = "informational"
	IntentGeneral       Intent = "general"
)

var (
	comparisonRe    = regexp.MustCompile(`(?i)(?:\bOR\b|\bvs\.?(?:\s|$)|\bversus\b|\bdifference\s+between\b|\bcompared?\s+(?:to|with)\b)`)
	filterRe        = regexp.MustCompile(`(?i)(?:\bonly\b|\bexclud(?:e|ing)\b|\bwithout\b|\bwith\s+tag\b|\btype:|\bfrom\b)`)
	informationalRe = regexp.MustCompile(`(?i)^\s*(?:what|how|why|who|when|where|explain)\b`)
)

// Classify returns the intent of text. Comparison takes precedence over filter,
// filter over informational.
func Classify(text string) Intent {
	switch {
	case comparisonRe.MatchString(text):
		return IntentComparison
	case filterRe.MatchString(text):
		return IntentFilter
	case informationalRe.MatchString(text):
		return IntentInformational
	}
	return IntentGeneral
}

// shape wraps text according to intent: "(q)" for comparison, "+q" for filter.
func shape(text string, intent Intent) string {
	switch intent {
	case IntentComparison:
		if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
			return text
		}
		return "(" + text + ")"
	case IntentFilter:
		if strings.HasPrefix(text, "+") {
			return text
		}
		return "+" + text
	}
	return text
}
