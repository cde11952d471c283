package env

import (
	"fmt"
	"sort"
	"strings"
)

// Labels is a flag.Value collecting KEY=VALUE pairs. The flag may be
// repeated or given a comma separated list.
type Labels map[string]string

func (l Labels) String() string {
	pairs := make([]string, 0, len(l))
	for key, val := range l {
		pairs = append(pairs, key+"="+val)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// Set implements flag.Value.
func (l Labels) Set(s string) error {
	for _, pair := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid label %q, expect KEY=VALUE", pair)
		}
		l[key] = val
	}
	return nil
}

// ParseLabels parses each arg with Set, nil if args is empty.
func ParseLabels(args ...string) (Labels, error) {
	if len(args) == 0 {
		return nil, nil
	}
	l := make(Labels)
	for _, arg := range args {
		if err := l.Set(arg); err != nil {
			return nil, err
		}
	}
	return l, nil
}
