package tokenizer

import "fmt"

// Vocabulary is the bidirectional token/id table. It is built once during
// Load and read-only afterwards, so lookups need no locking.
type Vocabulary struct {
	ids    map[string]int32
	values map[int32]string
}

func newVocabulary(capacity int) *Vocabulary {
	return &Vocabulary{
		ids:    make(map[string]int32, capacity),
		values: make(map[int32]string, capacity),
	}
}

func (v *Vocabulary) add(s string, id int32) error {
	if prev, ok := v.ids[s]; ok {
		return fmt.Errorf("duplicate token %q (ids %d and %d)", s, prev, id)
	}
	if prev, ok := v.values[id]; ok {
		return fmt.Errorf("duplicate id %d (tokens %q and %q)", id, prev, s)
	}
	v.ids[s] = id
	v.values[id] = s
	return nil
}

// Encode returns the id for s, or -1 if s is not in the vocabulary.
func (v *Vocabulary) Encode(s string) int32 {
	if id, ok := v.ids[s]; ok {
		return id
	}
	return -1
}

// Decode returns the token string for id.
func (v *Vocabulary) Decode(id int32) (string, bool) {
	s, ok := v.values[id]
	return s, ok
}

func (v *Vocabulary) Size() int {
	return len(v.values)
}

// mergePair keys the rank table on both components directly so components
// containing spaces (tuple-format merges) stay distinct.
type mergePair struct {
	left, right string
}

// mergeTable maps ordered token pairs to their merge rank. Lower ranks merge
// first; a pair absent from the table is unmergeable.
type mergeTable struct {
	ranks map[mergePair]int
}

func (m *mergeTable) rank(left, right string) int {
	if r, ok := m.ranks[mergePair{left, right}]; ok {
		return r
	}
	return -1
}

func (m *mergeTable) size() int {
	return len(m.ranks)
}
