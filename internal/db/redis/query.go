package redis

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
)

// renderQuery builds the FT.SEARCH query string: tag pre-filters followed by
// the text expression restricted to fields.
func renderQuery(expr query.Expr, fields []string, filters filter.Set) string {
	text := renderExpr(expr)
	if text != "" && len(fields) > 0 {
		text = "@" + strings.Join(fields, "|") + ":(" + text + ")"
	}

	f := buildFilter(filters)
	switch {
	case text == "" && f == "":
		return "*"
	case text == "":
		return f
	case f == "":
		return text
	}
	return f + " " + text
}

// renderExpr maps the parsed expression onto RediSearch syntax:
// AND is intersection (space), OR is union ('|'), NOT is '-'.
func renderExpr(e query.Expr) string {
	switch v := e.(type) {
	case nil:
		return ""
	case query.Term:
		if v.Phrase {
			return `"` + escapeQuery(v.Text) + `"`
		}
		return escapeQuery(v.Text)
	case query.Not:
		inner := renderExpr(v.Operand)
		if inner == "" {
			return ""
		}
		return "-" + inner
	case query.Binary:
		l, r := renderExpr(v.Left), renderExpr(v.Right)
		if l == "" || r == "" {
			return l + r
		}
		if v.Op == query.OpOr {
			return "(" + l + " | " + r + ")"
		}
		return "(" + l + " " + r + ")"
	case query.Seq:
		parts := make([]string, 0, len(v))
		for _, c := range v {
			if s := renderExpr(c); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// renderPrefix builds "@field:(w1 w2 last*)". RediSearch rejects prefixes
// shorter than two characters, so a shorter trailing word is dropped.
func renderPrefix(field, prefix string) string {
	words := strings.Fields(prefix)
	parts := make([]string, 0, len(words))
	for i, w := range words {
		esc := escapeQuery(w)
		if i == len(words)-1 {
			if utf8.RuneCountInString(w) < 2 {
				continue
			}
			esc += "*"
		}
		parts = append(parts, esc)
	}
	if len(parts) == 0 {
		return ""
	}
	return "@" + field + ":(" + strings.Join(parts, " ") + ")"
}

// buildFilter translates a filter.Set into TAG pre-filters. Values of one
// field are ORed; fields are ANDed.
func buildFilter(set filter.Set) string {
	if set.IsEmpty() {
		return ""
	}

	keys := set.Keys()
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		values := set.Values(key)
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = tagEscaper.Replace(v)
		}
		parts = append(parts, "@"+key+":{"+strings.Join(escaped, " | ")+"}")
	}
	return strings.Join(parts, " ")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)
