// Package tokenizer implements a byte-level BPE tokenizer compatible with
// the HuggingFace tokenizer.json format: load a configuration, encode text
// to token ids, and decode ids back to text fragments.
//
// A Tokenizer starts uninitialized; Load populates it. Once Load returns nil
// the instance is read-only and Encode/Decode are safe to call concurrently.
// Load itself must not race with other calls on the same instance; callers
// that reload a shared tokenizer must drain readers first.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/alan-zero/tokenizers/logutil"
)

// NoPrev is the sentinel "no previous token" id for Decode.
const NoPrev int32 = -1

// defaultSpecialID is used for bos/eos when no configuration binds them.
const defaultSpecialID int32 = 0

type Tokenizer struct {
	vocab   *Vocabulary
	merges  *mergeTable
	pre     *preTokenizer
	special *specialTokens
	loaded  bool
}

func New() *Tokenizer {
	return &Tokenizer{}
}

// Load reads the tokenizer configuration from path (a tokenizer.json file or
// a directory containing it) and replaces the instance state. On failure the
// previous state, loaded or not, is left untouched.
func (t *Tokenizer) Load(path string) error {
	st, err := load(path)
	if err != nil {
		return err
	}

	t.vocab = st.vocab
	t.merges = st.merges
	t.pre = st.pre
	t.special = st.special
	t.loaded = true

	logutil.Trace("loaded tokenizer", "path", path, "vocab", t.vocab.Size(), "merges", t.merges.size())
	return nil
}

// Encode converts text to token ids. bos and eos are repetition counts: the
// registry's bos id is prepended bos times and its eos id appended eos times.
func (t *Tokenizer) Encode(text string, bos, eos int) ([]int32, error) {
	if !t.loaded {
		return nil, ErrUninitialized
	}

	var bosID, eosID int32
	var err error
	if bos > 0 {
		if bosID, err = t.specialID(specialBOS); err != nil {
			return nil, err
		}
	}
	if eos > 0 {
		if eosID, err = t.specialID(specialEOS); err != nil {
			return nil, err
		}
	}

	ids := make([]int32, 0, bos+eos+len(text)/3)
	for i := 0; i < bos; i++ {
		ids = append(ids, bosID)
	}

	for _, frag := range t.special.splitAddedTokens(t.pre.prepare(text)) {
		if len(frag.ids) > 0 {
			ids = append(ids, frag.ids...)
			continue
		}

		for _, piece := range t.pre.pieces(frag.value) {
			if ids, err = t.encodePiece(mapBytes(piece), ids); err != nil {
				return nil, err
			}
		}
	}

	for i := 0; i < eos; i++ {
		ids = append(ids, eosID)
	}

	logutil.Trace("encoded", "text", text, "ids", ids)
	return ids, nil
}

// Decode returns the text fragment for cur, using prev's trailing bytes as
// UTF-8 context. A rune whose bytes span the token boundary is attributed to
// the token holding its final byte, so streaming concatenation of fragments
// reproduces the text without replacement characters or duplicated bytes.
// Pass NoPrev (or any unresolvable id) when there is no previous token.
func (t *Tokenizer) Decode(prev, cur int32) (string, error) {
	if !t.loaded {
		return "", ErrUninitialized
	}

	value, ok := t.vocab.Decode(cur)
	if !ok {
		return "", fmt.Errorf("%w: id %d not in vocabulary", ErrDecode, cur)
	}

	// added tokens are verbatim text, never byte-alphabet symbols; any
	// incomplete rune held over from prev can no longer complete
	if id, ok := t.special.addedIDs[value]; ok && id == cur {
		logutil.Trace("decoded", "prev", prev, "cur", cur, "fragment", value)
		return value, nil
	}

	var prevBytes []byte
	if prevValue, ok := t.vocab.Decode(prev); ok {
		prevBytes = t.tokenBytes(prevValue)
	}

	combined := append(prevBytes, unmapSymbols(value)...)
	fragment := attribute(combined, len(prevBytes))

	logutil.Trace("decoded", "prev", prev, "cur", cur, "fragment", fragment)
	return fragment, nil
}

// DecodeAll decodes a whole id sequence by threading each id through Decode
// as the next call's previous token.
func (t *Tokenizer) DecodeAll(ids []int32) (string, error) {
	var sb strings.Builder
	prev := NoPrev
	for _, id := range ids {
		fragment, err := t.Decode(prev, id)
		if err != nil {
			return "", err
		}
		sb.WriteString(fragment)
		prev = id
	}
	return sb.String(), nil
}

// BosTok returns the resolved bos id, or the default when unconfigured.
func (t *Tokenizer) BosTok() int32 {
	if t.loaded {
		if id, ok, _ := t.special.id(specialBOS); ok {
			return id
		}
	}
	return defaultSpecialID
}

// EosTok returns the resolved eos id, or the default when unconfigured.
func (t *Tokenizer) EosTok() int32 {
	if t.loaded {
		if id, ok, _ := t.special.id(specialEOS); ok {
			return id
		}
	}
	return defaultSpecialID
}

// AddBos reports whether tokenizer_config.json requests a leading bos token
// by default. The engine never applies it implicitly; Encode's bos count is
// authoritative. Exposed so callers can honor the configuration's intent.
func (t *Tokenizer) AddBos() bool {
	return t.loaded && t.special.addBOS
}

// AddEos is the eos counterpart of AddBos.
func (t *Tokenizer) AddEos() bool {
	return t.loaded && t.special.addEOS
}

// VocabSize returns the number of entries in the vocabulary, zero before a
// successful Load.
func (t *Tokenizer) VocabSize() int {
	if !t.loaded {
		return 0
	}
	return t.vocab.Size()
}

// IsSpecial reports whether id belongs to a resolved special or added token.
func (t *Tokenizer) IsSpecial(id int32) bool {
	return t.loaded && t.special.isSpecial(id)
}

// PieceToID looks up the id for a token string.
func (t *Tokenizer) PieceToID(s string) (int32, bool) {
	if !t.loaded {
		return 0, false
	}
	id := t.vocab.Encode(s)
	return id, id >= 0
}

// IDToPiece looks up the token string for an id.
func (t *Tokenizer) IDToPiece(id int32) (string, bool) {
	if !t.loaded {
		return "", false
	}
	return t.vocab.Decode(id)
}

// tokenBytes returns the raw bytes a vocabulary entry stands for: the UTF-8
// bytes themselves for a verbatim added token, the alphabet inverse for a
// byte-mapped symbol string.
func (t *Tokenizer) tokenBytes(value string) []byte {
	if _, ok := t.special.addedIDs[value]; ok {
		return []byte(value)
	}
	return unmapSymbols(value)
}

// specialID resolves a named special token for use during encode. A name
// bound to a string missing from the vocabulary is an error here even though
// it was not at load time; an unconfigured name falls back to the default.
func (t *Tokenizer) specialID(name string) (int32, error) {
	id, resolved, configured := t.special.id(name)
	if resolved {
		return id, nil
	}
	if configured {
		return 0, fmt.Errorf("%w: special token %s is not resolved against the vocabulary", ErrEncode, name)
	}
	return defaultSpecialID, nil
}

// leadSize returns the sequence length implied by a UTF-8 lead byte, or 0
// for a continuation or invalid byte.
func leadSize(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	}
	return 0
}

// attribute walks the combined previous+current byte string rune by rune and
// keeps the runes belonging to the current token, i.e. those whose byte span
// ends after start. Orphan continuation bytes (their lead byte is in a token
// before the previous one) are dropped; a sequence truncated at the end of
// the combined bytes is held back for the next call to complete.
func attribute(combined []byte, start int) string {
	var sb strings.Builder
	for i := 0; i < len(combined); {
		n := leadSize(combined[i])
		if n == 0 {
			i++
			continue
		}
		if i+n > len(combined) {
			break
		}

		r := decodeRune(combined[i:i+n], n)
		if r < 0 {
			i++
			continue
		}

		if i+n > start {
			sb.Write(combined[i : i+n])
		}
		i += n
	}
	return sb.String()
}

// decodeRune validates an n-byte UTF-8 sequence, returning -1 if any
// trailing byte is not a continuation byte.
func decodeRune(b []byte, n int) rune {
	if n == 1 {
		return rune(b[0])
	}
	r := rune(b[0] & (0xff >> (n + 1)))
	for _, c := range b[1:] {
		if c&0xc0 != 0x80 {
			return -1
		}
		r = r<<6 | rune(c&0x3f)
	}
	return r
}
