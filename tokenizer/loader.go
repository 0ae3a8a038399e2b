package tokenizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// rawConfig mirrors the tokenizer.json document. Polymorphic fields stay as
// json.RawMessage and are resolved by their own parsers.
type rawConfig struct {
	Version string `json:"version"`
	Model   struct {
		Type   string          `json:"type"`
		Vocab  json.RawMessage `json:"vocab"`
		Merges json.RawMessage `json:"merges"`
	} `json:"model"`
	Normalizer   json.RawMessage `json:"normalizer"`
	PreTokenizer json.RawMessage `json:"pre_tokenizer"`
	AddedTokens  []struct {
		ID      int32  `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

type rawPreTokenizer struct {
	Type           string `json:"type"`
	AddPrefixSpace bool   `json:"add_prefix_space"`
	TrimOffsets    bool   `json:"trim_offsets"`
	UseRegex       bool   `json:"use_regex"`
}

// loadedState is everything Load produces. It is assembled completely before
// being installed on the Tokenizer, so a failed load leaves prior state
// untouched.
type loadedState struct {
	vocab   *Vocabulary
	merges  *mergeTable
	pre     *preTokenizer
	special *specialTokens
}

// load reads the configuration from path, which may be the tokenizer.json
// file itself or a directory containing it plus optional companion files
// (special_tokens_map.json, tokenizer_config.json, generation_config.json).
func load(path string) (*loadedState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	var fsys fs.FS
	var name string
	if info.IsDir() {
		fsys = os.DirFS(path)
		name = "tokenizer.json"
	} else {
		fsys = os.DirFS(filepath.Dir(path))
		name = filepath.Base(path)
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	st, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		if err := applyCompanions(fsys, st); err != nil {
			return nil, err
		}
	}

	return st, nil
}

func parseConfig(data []byte) (*loadedState, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: could not parse tokenizer: %v", ErrLoad, err)
	}

	if raw.Model.Type != "BPE" {
		return nil, fmt.Errorf("%w: unsupported tokenizer type: %q", ErrLoad, raw.Model.Type)
	}

	// a configured normalizer would change the text before pre-tokenization;
	// skipping it silently would corrupt output, so reject it outright
	if present(raw.Normalizer) {
		var n struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(raw.Normalizer, &n)
		return nil, fmt.Errorf("%w: unsupported normalizer: %q", ErrLoad, n.Type)
	}

	st := &loadedState{
		vocab:   newVocabulary(len(raw.AddedTokens)),
		special: newSpecialTokens(),
	}

	if err := parseVocab(raw.Model.Vocab, st.vocab); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	merges, err := parseMerges(raw.Model.Merges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	st.merges = merges

	pre, err := parsePreTokenizer(raw.PreTokenizer)
	if err != nil {
		return nil, err
	}
	st.pre = pre

	for _, tok := range raw.AddedTokens {
		// an added token may restate a vocab entry with the same id
		if st.vocab.Encode(tok.Content) != tok.ID {
			if err := st.vocab.add(tok.Content, tok.ID); err != nil {
				return nil, fmt.Errorf("%w: added_tokens: %v", ErrLoad, err)
			}
		}
		st.special.addToken(tok.Content, tok.ID)
	}

	return st, nil
}

// parseVocab walks the vocab object token by token instead of decoding into
// a map: a map would let a duplicated token string silently shadow an earlier
// entry, and duplicates are a load error.
func parseVocab(raw json.RawMessage, vocab *Vocabulary) error {
	if !present(raw) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("could not parse vocab: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("could not parse vocab: expected an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("could not parse vocab: %v", err)
		}
		key := keyTok.(string)

		var id int32
		if err := dec.Decode(&id); err != nil {
			return fmt.Errorf("could not parse vocab entry %q: %v", key, err)
		}

		if err := vocab.add(key, id); err != nil {
			return err
		}
	}

	return nil
}

func parsePreTokenizer(raw json.RawMessage) (*preTokenizer, error) {
	if !present(raw) {
		// no pre-tokenizer: pass input through as a single piece
		return newPreTokenizer(false, false, false), nil
	}

	var pt rawPreTokenizer
	if err := json.Unmarshal(raw, &pt); err != nil {
		return nil, fmt.Errorf("%w: could not parse pre_tokenizer: %v", ErrLoad, err)
	}
	if pt.Type != "ByteLevel" {
		return nil, fmt.Errorf("%w: unsupported pre_tokenizer type: %q", ErrLoad, pt.Type)
	}

	return newPreTokenizer(pt.AddPrefixSpace, pt.UseRegex, pt.TrimOffsets), nil
}

// applyCompanions resolves named special tokens from the optional companion
// files. Priority follows the reference loaders: generation config ids win
// over tokenizer config strings, which win over the special tokens map.
// A missing file is not an error.
func applyCompanions(fsys fs.FS, st *loadedState) error {
	if data, err := readOptional(fsys, "generation_config.json"); err != nil {
		return err
	} else if data != nil {
		var gen map[string]json.RawMessage
		if err := json.Unmarshal(data, &gen); err == nil {
			for _, name := range []string{specialBOS, specialEOS} {
				if raw, ok := gen[name+"_token_id"]; ok {
					if ids := parseTokenIDs(raw); len(ids) > 0 {
						st.special.bindID(name, ids[0])
					}
				}
			}
		}
	}

	if data, err := readOptional(fsys, "tokenizer_config.json"); err != nil {
		return err
	} else if data != nil {
		var cfg map[string]json.RawMessage
		if err := json.Unmarshal(data, &cfg); err == nil {
			for _, name := range specialNames {
				if _, _, configured := st.special.id(name); configured {
					continue
				}
				if content := extractTokenContent(cfg[name+"_token"]); content != "" {
					st.special.bind(name, content, st.vocab)
				}
			}

			var add bool
			if raw, ok := cfg["add_bos_token"]; ok && json.Unmarshal(raw, &add) == nil {
				st.special.addBOS = add
			}
			if raw, ok := cfg["add_eos_token"]; ok && json.Unmarshal(raw, &add) == nil {
				st.special.addEOS = add
			}
		}
	}

	if data, err := readOptional(fsys, "special_tokens_map.json"); err != nil {
		return err
	} else if data != nil {
		var tokens map[string]json.RawMessage
		if err := json.Unmarshal(data, &tokens); err == nil {
			for _, name := range specialNames {
				if _, _, configured := st.special.id(name); configured {
					continue
				}
				if content := extractTokenContent(tokens[name+"_token"]); content != "" {
					st.special.bind(name, content, st.vocab)
				}
			}
		}
	}

	return nil
}

func readOptional(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return data, nil
}

// parseTokenIDs accepts the scalar and list forms of *_token_id fields.
func parseTokenIDs(raw json.RawMessage) []int32 {
	var id int32
	if err := json.Unmarshal(raw, &id); err == nil {
		return []int32{id}
	}

	var ids []int32
	if err := json.Unmarshal(raw, &ids); err == nil {
		return ids
	}

	return nil
}

// extractTokenContent accepts the two forms special tokens take in companion
// files: a bare string or an object with a content field.
func extractTokenContent(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Content
	}

	return ""
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
