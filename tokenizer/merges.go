package tokenizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseMerges normalizes the merge list into the rank table. Each entry is
// one of three forms:
//
//   - a "#version"-prefixed string, a header carried over from the legacy
//     merges.txt format, skipped without consuming a rank
//   - a single string split on its first space into the two components
//     (legacy form; cannot represent components containing a space)
//   - a two-element array whose components are taken verbatim
//
// Ranks are assigned by position among the surviving rules, starting at 0.
func parseMerges(raw json.RawMessage) (*mergeTable, error) {
	m := &mergeTable{ranks: make(map[mergePair]int)}
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("could not parse merges: %w", err)
	}

	rank := 0
	for i, entry := range entries {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			if strings.HasPrefix(s, "#version") {
				continue
			}

			left, right, ok := strings.Cut(s, " ")
			if !ok || left == "" || right == "" {
				return nil, fmt.Errorf("malformed merge entry %d: %q", i, s)
			}
			m.ranks[mergePair{left, right}] = rank
			rank++
			continue
		}

		var pair []string
		if err := json.Unmarshal(entry, &pair); err != nil {
			return nil, fmt.Errorf("could not parse merge entry %d: expected string or [2]string: %w", i, err)
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed merge entry %d: expected pair of length 2, got %d", i, len(pair))
		}
		m.ranks[mergePair{pair[0], pair[1]}] = rank
		rank++
	}

	return m, nil
}
