package tokenizer

import "strings"

// byteToRune is the GPT-2 byte-level alphabet: a bijection between the 256
// byte values and 256 printable runes. Printable ASCII and most of Latin-1
// map to themselves; control bytes, DEL through NBSP, and the soft hyphen are
// shifted into unassigned ranges above 0x100 so every byte has a visible,
// mergeable representation.
var byteToRune [256]rune

func init() {
	for b := 0; b < 256; b++ {
		r := rune(b)
		switch {
		case r == 0x00ad:
			r = 0x0143
		case r <= 0x0020:
			r = r + 0x0100
		case r >= 0x007f && r <= 0x00a0:
			r = r + 0x00a2
		}
		byteToRune[b] = r
	}
}

// runeToByte inverts byteToRune. ok is false for runes outside the alphabet.
func runeToByte(r rune) (byte, bool) {
	switch {
	case r >= 0 && r <= 0x00ff && r != 0x00ad && !(r <= 0x0020) && !(r >= 0x007f && r <= 0x00a0):
		return byte(r), true
	case r == 0x0143:
		return 0x00ad, true
	case r >= 0x0100 && r <= 0x0120:
		return byte(r - 0x0100), true
	case r > 0x0120 && r <= 0x0142:
		return byte(r - 0x00a2), true
	default:
		return 0, false
	}
}

// mapBytes maps the UTF-8 bytes of s through the byte-level alphabet,
// producing the symbol string fed to the merge loop.
func mapBytes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, b := range []byte(s) {
		sb.WriteRune(byteToRune[b])
	}
	return sb.String()
}

// unmapSymbols inverts mapBytes for a byte-mapped vocabulary entry. Added
// tokens must not go through this: their text is verbatim, and any of their
// runes that happen to fall inside the alphabet would be folded to single
// bytes. Runes outside the alphabet pass through in their UTF-8 encoding.
func unmapSymbols(symbols string) []byte {
	out := make([]byte, 0, len(symbols))
	for _, r := range symbols {
		if b, ok := runeToByte(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, string(r)...)
	}
	return out
}
