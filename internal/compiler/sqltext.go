package compiler

import (
	"regexp"
	"strings"
)

var mainPrefixRe = regexp.MustCompile(`\bmain\.`)

// conditionKeywords are never qualified even when followed by "=".
var conditionKeywords = map[string]bool{
	"AND":  true,
	"OR":   true,
	"ON":   true,
	"NULL": true,
	"NOT":  true,
}

// RewriteMainAlias replaces the sheet's "main." prefix with the model alias.
func RewriteMainAlias(expr, alias string) string {
	return mainPrefixRe.ReplaceAllString(expr, alias+".")
}

// QualifyCondition rewrites "main." and prefixes every unqualified identifier
// that is immediately followed by "=" with the model alias.
func QualifyCondition(cond, alias string) string {
	cond = RewriteMainAlias(cond, alias)

	var b strings.Builder
	b.Grow(len(cond) + 16)
	for i := 0; i < len(cond); {
		c := cond[i]
		if c == '\'' {
			end := strings.IndexByte(cond[i+1:], '\'')
			if end < 0 {
				b.WriteString(cond[i:])
				break
			}
			b.WriteString(cond[i : i+end+2])
			i += end + 2
			continue
		}
		if !isIdentChar(c) {
			b.WriteByte(c)
			i++
			continue
		}

		start := i
		for i < len(cond) && isIdentChar(cond[i]) {
			i++
		}
		token := cond[start:i]
		if start == 0 || !isQualifierChar(cond[start-1]) {
			if shouldQualify(token) && followedByEquals(cond[i:]) {
				b.WriteString(alias)
				b.WriteByte('.')
			}
		}
		b.WriteString(token)
	}
	return b.String()
}

func shouldQualify(token string) bool {
	if conditionKeywords[strings.ToUpper(token)] {
		return false
	}
	return strings.TrimLeft(token, "0123456789") != ""
}

func followedByEquals(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return strings.HasPrefix(rest, "=")
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isQualifierChar(c byte) bool {
	return c == '.' || c == '"'
}

// QuoteIdent double-quotes a column name that contains spaces or parentheses.
func QuoteIdent(name string) string {
	if strings.ContainsAny(name, " ()") {
		return `"` + name + `"`
	}
	return name
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
