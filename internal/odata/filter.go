package odata

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned for $filter expressions outside the supported
// `<field> eq '<literal>'` form.
var ErrInvalidFilter = errors.New("odata: invalid $filter")

// Filter is a single equality predicate.
type Filter struct {
	Field string
	Value string
}

// String renders the filter back into $filter syntax.
func (f Filter) String() string {
	return fmt.Sprintf("%s eq '%s'", f.Field, strings.ReplaceAll(f.Value, "'", "''"))
}

// ParseFilter parses `<field> eq '<literal>'`. Quotes inside the literal are
// escaped by doubling them.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, fmt.Errorf("%w: empty expression", ErrInvalidFilter)
	}
	field, rest, ok := strings.Cut(expr, " ")
	if !ok || !isIdentifier(field) {
		return Filter{}, fmt.Errorf("%w: expected field name in %q", ErrInvalidFilter, expr)
	}
	rest = strings.TrimSpace(rest)
	op, rest, ok := strings.Cut(rest, " ")
	if !ok || op != "eq" {
		return Filter{}, fmt.Errorf("%w: only eq is supported", ErrInvalidFilter)
	}
	value, err := parseLiteral(strings.TrimSpace(rest))
	if err != nil {
		return Filter{}, err
	}
	return Filter{Field: field, Value: value}, nil
}

func parseLiteral(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", fmt.Errorf("%w: expected quoted string literal", ErrInvalidFilter)
	}
	body := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(body) && body[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return "", fmt.Errorf("%w: unescaped quote in literal", ErrInvalidFilter)
	}
	return b.String(), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// parseKey extracts the key from an entity path segment like
// POINTS_OF_SALES('abc-123').
func parseKey(segment, entitySet string) (string, bool) {
	prefix := entitySet + "("
	if !strings.HasPrefix(segment, prefix) || !strings.HasSuffix(segment, ")") {
		return "", false
	}
	value, err := parseLiteral(segment[len(prefix) : len(segment)-1])
	if err != nil {
		return "", false
	}
	return value, true
}
