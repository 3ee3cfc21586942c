package query

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

type token struct {
	text   string
	phrase bool
}

// operator reports the boolean operator a token spells, if any.
// Quoted phrases are never operators.
func (t token) operator() (string, bool) {
	if t.phrase {
		return "", false
	}
	switch up := strings.ToUpper(t.text); up {
	case "AND", "OR", "NOT":
		return up, true
	}
	return "", false
}

// tokenize splits raw on whitespace outside double quotes. Unquoted parentheses
// separate tokens and a leading '+' is dropped. An empty or blank phrase is
// malformed: dropping it would silently rebind the operators around it.
func tokenize(raw string) ([]token, error) {
	var (
		tokens  []token
		buf     strings.Builder
		inQuote bool
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		text := strings.TrimLeft(buf.String(), "+")
		buf.Reset()
		if text != "" {
			tokens = append(tokens, token{text: text})
		}
	}

	for _, r := range raw {
		switch {
		case r == '"' && inQuote:
			phrase := strings.TrimSpace(buf.String())
			if phrase == "" {
				return nil, domain.NewMalformedQuery(len(tokens), `"`+buf.String()+`"`, "empty phrase")
			}
			tokens = append(tokens, token{text: phrase, phrase: true})
			buf.Reset()
			inQuote = false
		case r == '"':
			flush()
			inQuote = true
		case inQuote:
			buf.WriteRune(r)
		case unicode.IsSpace(r), r == '(', r == ')':
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	if inQuote {
		return nil, domain.NewMalformedQuery(len(tokens), `"`+buf.String(), "unbalanced quote")
	}
	flush()
	return tokens, nil
}
