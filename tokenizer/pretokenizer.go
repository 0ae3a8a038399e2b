package tokenizer

import (
	"unicode"

	"github.com/dlclark/regexp2"
)

// defaultSplitPattern is the byte-level segmentation rule shared by GPT-2
// style tokenizers: contractions, runs of letters, runs of digits, runs of
// punctuation, and runs of whitespace each form their own piece. The
// trailing-whitespace lookahead keeps the space attached to the following
// word, which is why this needs regexp2 rather than the stdlib RE2 engine.
// https://github.com/huggingface/tokenizers/blob/main/tokenizers/src/pre_tokenizers/byte_level.rs#L44
const defaultSplitPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// preTokenizer implements the ByteLevel policy: optional prefix space,
// optional regex segmentation, then the byte-level alphabet mapping.
type preTokenizer struct {
	addPrefixSpace bool
	trimOffsets    bool
	re             *regexp2.Regexp // nil when use_regex is false
}

func newPreTokenizer(addPrefixSpace, useRegex, trimOffsets bool) *preTokenizer {
	p := &preTokenizer{
		addPrefixSpace: addPrefixSpace,
		trimOffsets:    trimOffsets,
	}
	if useRegex {
		p.re = regexp2.MustCompile(defaultSplitPattern, regexp2.RE2)
	}
	return p
}

// prepare applies the prefix-space rule to the whole input, before added
// token matching and segmentation.
func (p *preTokenizer) prepare(s string) string {
	if p.addPrefixSpace && s != "" {
		if r := []rune(s)[0]; !unicode.IsSpace(r) {
			return " " + s
		}
	}
	return s
}

// pieces segments one non-special span. Without a regex the span is a single
// piece. Unmatched gaps between regex matches are kept as their own pieces so
// no input byte is dropped.
func (p *preTokenizer) pieces(span string) []string {
	if span == "" {
		return nil
	}
	if p.re == nil {
		return []string{span}
	}

	var parts []string
	r := []rune(span)
	var offset int
	for m, _ := p.re.FindRunesMatch(r); m != nil; m, _ = p.re.FindNextMatch(m) {
		if m.Index > offset {
			parts = append(parts, string(r[offset:m.Index]))
		}
		parts = append(parts, m.String())
		offset = m.Index + m.Length
	}
	if offset < len(r) {
		parts = append(parts, string(r[offset:]))
	}

	return parts
}
