package ledger

import (
	"fmt"
	"strings"
)

const (
	keyPrefix      = "\x00"
	componentDelim = "\x00"
)

// CompositeKey builds the key for kind and its identifying parts. The layout
// is `\x00kind\x00part1\x00part2\x00`, so two keys are equal only if kind and
// every part are equal. Components must not contain U+0000.
func CompositeKey(kind string, parts ...string) (string, error) {
	if kind == "" {
		return "", fmt.Errorf("composite key: kind is required")
	}
	if err := validateComponent(kind); err != nil {
		return "", fmt.Errorf("composite key kind: %w", err)
	}
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(kind)
	b.WriteString(componentDelim)
	for i, p := range parts {
		if err := validateComponent(p); err != nil {
			return "", fmt.Errorf("composite key part %d: %w", i, err)
		}
		b.WriteString(p)
		b.WriteString(componentDelim)
	}
	return b.String(), nil
}

// SplitCompositeKey is the inverse of CompositeKey.
func SplitCompositeKey(key string) (string, []string, error) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, componentDelim) || len(key) < 3 {
		return "", nil, fmt.Errorf("not a composite key: %q", key)
	}
	components := strings.Split(key[1:len(key)-1], componentDelim)
	return components[0], components[1:], nil
}

func validateComponent(c string) error {
	if strings.Contains(c, "\x00") {
		return fmt.Errorf("component %q contains U+0000", c)
	}
	return nil
}
