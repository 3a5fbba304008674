package featureloader

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+!?$`)

// Token is one entry of a parsed plugin list: a plugin name and whether it
// carries the critical ("!") suffix.
type Token struct {
	Name     string
	Critical bool
}

// Tokenize splits a whitespace-separated plugin list per EXTERNAL
// INTERFACES §6: each token matches [A-Za-z0-9_-]+ with an optional
// trailing "!" marking the plugin critical.
func Tokenize(list string) ([]Token, error) {
	fields := strings.Fields(list)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		if !tokenPattern.MatchString(f) {
			return nil, fmt.Errorf("featureloader: invalid plugin token %q", f)
		}
		t := Token{Name: f}
		if strings.HasSuffix(f, "!") {
			t.Critical = true
			t.Name = strings.TrimSuffix(f, "!")
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}
