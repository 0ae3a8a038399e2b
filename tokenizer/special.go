package tokenizer

import (
	"slices"
	"strings"
)

// Recognized special token names, as they appear (with a _token suffix) in
// tokenizer_config.json and special_tokens_map.json.
const (
	specialBOS = "bos"
	specialEOS = "eos"
	specialUNK = "unk"
	specialPAD = "pad"
)

var specialNames = []string{specialBOS, specialEOS, specialUNK, specialPAD}

// specialTokens holds named special-token bindings and the verbatim added
// tokens that bypass BPE. A name bound in a config file whose content string
// is missing from the vocabulary stays unresolved: load succeeds, but any
// encode that references the name fails.
type specialTokens struct {
	resolved   map[string]int32
	unresolved map[string]string

	// added-token contents sorted longest first, so the longest candidate
	// wins at overlapping match positions
	added    []string
	addedIDs map[string]int32

	addBOS, addEOS bool
}

func newSpecialTokens() *specialTokens {
	return &specialTokens{
		resolved:   make(map[string]int32),
		unresolved: make(map[string]string),
		addedIDs:   make(map[string]int32),
	}
}

func (st *specialTokens) addToken(content string, id int32) {
	if _, ok := st.addedIDs[content]; ok {
		return
	}
	st.addedIDs[content] = id
	st.added = append(st.added, content)
	slices.SortStableFunc(st.added, func(a, b string) int {
		return len(b) - len(a)
	})
}

// bind associates a special name with a token string, resolving it against
// the vocabulary if possible.
func (st *specialTokens) bind(name, content string, vocab *Vocabulary) {
	if id := vocab.Encode(content); id >= 0 {
		st.resolved[name] = id
		delete(st.unresolved, name)
		return
	}
	if _, ok := st.resolved[name]; !ok {
		st.unresolved[name] = content
	}
}

func (st *specialTokens) bindID(name string, id int32) {
	st.resolved[name] = id
	delete(st.unresolved, name)
}

// id returns the resolved id for name. configured reports whether the name
// was bound at all, so callers can tell "use the default" apart from "bound
// but missing from the vocabulary".
func (st *specialTokens) id(name string) (id int32, resolved, configured bool) {
	if id, ok := st.resolved[name]; ok {
		return id, true, true
	}
	if _, ok := st.unresolved[name]; ok {
		return 0, false, true
	}
	return 0, false, false
}

func (st *specialTokens) isSpecial(id int32) bool {
	for _, sid := range st.resolved {
		if sid == id {
			return true
		}
	}
	for _, aid := range st.addedIDs {
		if aid == id {
			return true
		}
	}
	return false
}

// fragment is a span of input text; ids is populated for added-token spans,
// which pass through encoding untouched.
type fragment struct {
	value string
	ids   []int32
}

// splitAddedTokens carves verbatim added tokens out of s with a left-to-right
// scan: at each position the added strings are tried longest first, the first
// match is emitted as its own fragment, and the scan advances past it. An
// earlier match therefore always wins over a longer token starting later.
func (st *specialTokens) splitAddedTokens(s string) []fragment {
	if len(st.added) == 0 {
		return []fragment{{value: s}}
	}

	var fragments []fragment
	var start, i int
	for i < len(s) {
		var matched string
		for _, special := range st.added {
			if strings.HasPrefix(s[i:], special) {
				matched = special
				break
			}
		}
		if matched == "" {
			i++
			continue
		}

		if i > start {
			fragments = append(fragments, fragment{value: s[start:i]})
		}
		fragments = append(fragments, fragment{value: matched, ids: []int32{st.addedIDs[matched]}})
		i += len(matched)
		start = i
	}

	if start < len(s) || len(fragments) == 0 {
		fragments = append(fragments, fragment{value: s[start:]})
	}

	return fragments
}
