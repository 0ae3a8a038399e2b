package tokenizer

import (
	"cmp"
	"fmt"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"
)

// pair is a candidate merge of two adjacent symbols and its rank.
type pair struct {
	a, b  int
	rank  int
	value string
}

// merge is a node in the doubly linked symbol list. A node whose runes are
// nil has been absorbed into its left neighbor.
type merge struct {
	p, n  int
	runes []rune
}

// encodePiece runs the merge loop over one piece's symbol sequence and
// resolves the surviving symbols to ids. symbols is the byte-mapped piece
// text; every rune is an initial single-symbol node.
func (t *Tokenizer) encodePiece(symbols string, ids []int32) ([]int32, error) {
	// short circuit if the whole piece is in the vocabulary
	if id := t.vocab.Encode(symbols); id >= 0 {
		return append(ids, id), nil
	}

	runes := []rune(symbols)
	if len(runes) == 0 {
		return ids, nil
	}

	merges := make([]merge, len(runes))
	for r := range runes {
		merges[r] = merge{
			p:     r - 1,
			n:     r + 1,
			runes: []rune{runes[r]},
		}
	}

	pairwise := func(a, b int) *pair {
		if a < 0 || b >= len(runes) {
			return nil
		}

		left, right := string(merges[a].runes), string(merges[b].runes)
		rank := t.merges.rank(left, right)
		if rank < 0 {
			return nil
		}

		return &pair{
			a:     a,
			b:     b,
			rank:  rank,
			value: left + right,
		}
	}

	// ranks are unique per table, but keep the leftmost-first order
	// deterministic anyway
	pairs := heap.NewWith(func(i, j *pair) int {
		if c := cmp.Compare(i.rank, j.rank); c != 0 {
			return c
		}
		return cmp.Compare(i.a, j.a)
	})

	for i := 0; i < len(runes)-1; i++ {
		if pair := pairwise(i, i+1); pair != nil {
			pairs.Push(pair)
		}
	}

	for !pairs.Empty() {
		pair, _ := pairs.Pop()

		left, right := merges[pair.a], merges[pair.b]
		if len(left.runes) == 0 || len(right.runes) == 0 ||
			string(left.runes)+string(right.runes) != pair.value {
			// stale entry from before a neighboring merge
			continue
		}

		merges[pair.a].runes = append(left.runes, right.runes...)
		merges[pair.b].runes = nil

		merges[pair.a].n = right.n
		if right.n < len(merges) {
			merges[right.n].p = pair.a
		}

		if pair := pairwise(merges[pair.a].p, pair.a); pair != nil {
			pairs.Push(pair)
		}

		if pair := pairwise(pair.a, merges[pair.a].n); pair != nil {
			pairs.Push(pair)
		}
	}

	for _, merge := range merges {
		if len(merge.runes) == 0 {
			continue
		}

		symbol := string(merge.runes)
		if id := t.vocab.Encode(symbol); id >= 0 {
			ids = append(ids, id)
			continue
		}

		if unk, ok, _ := t.special.id(specialUNK); ok {
			ids = append(ids, unk)
			continue
		}

		return nil, fmt.Errorf("%w: symbol %q not in vocabulary and no unk token configured", ErrEncode, symbol)
	}

	return ids, nil
}
