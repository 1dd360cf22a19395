package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Signature returns the cache key for a query document and its variables.
// Insignificant whitespace in the document is ignored and nil variables are
// the same as empty ones. encoding/json sorts map keys, so the variables part
// is canonical.
func Signature(query string, variables map[string]any) (string, error) {
	vars := []byte("{}")
	if len(variables) > 0 {
		b, err := json.Marshal(variables)
		if err != nil {
			return "", fmt.Errorf("failed to encode variables: %w", err)
		}
		vars = b
	}

	h := sha256.New()
	h.Write([]byte(normalizeQuery(query)))
	h.Write([]byte{0})
	h.Write(vars)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Snapshot returns the object key for an archived result of the given signature.
func Snapshot(signature string) string {
	return fmt.Sprintf("snapshots/%s.json", signature)
}

// normalizeQuery collapses runs of whitespace to a single space and trims the
// ends. String literals, block strings included, are copied verbatim because
// their whitespace is part of the value.
func normalizeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	space := false
	for i := 0; i < len(q); {
		c := q[i]
		if c == '"' {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			end := stringEnd(q, i)
			b.WriteString(q[i:end])
			i = end
			continue
		}
		if isSpace(c) {
			space = true
			i++
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// stringEnd returns the index just past the string literal starting at q[i].
// An unterminated literal runs to the end of q.
func stringEnd(q string, i int) int {
	if strings.HasPrefix(q[i:], `"""`) {
		for j := i + 3; j < len(q); j++ {
			if q[j] == '\\' && strings.HasPrefix(q[j:], `\"""`) {
				j += 3
				continue
			}
			if strings.HasPrefix(q[j:], `"""`) {
				return j + 3
			}
		}
		return len(q)
	}
	for j := i + 1; j < len(q); j++ {
		switch q[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(q)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
