package tokenizer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFixture writes each named file into a fresh temp directory and
// returns the directory path.
func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return dir
}

const minimalConfig = `{
	"version": "1.0",
	"model": {
		"type": "BPE",
		"vocab": {"a": 0, "b": 1, "c": 2, "ab": 3, "abc": 4},
		"merges": ["a b", "ab c"]
	},
	"normalizer": null,
	"pre_tokenizer": {
		"type": "ByteLevel",
		"add_prefix_space": false,
		"trim_offsets": false,
		"use_regex": false
	},
	"added_tokens": []
}`

func TestLoadInvalidPath(t *testing.T) {
	tok := New()
	err := tok.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestLoadMinimal(t *testing.T) {
	dir := writeFixture(t, map[string]string{"tokenizer.json": minimalConfig})

	tok := New()
	if err := tok.Load(filepath.Join(dir, "tokenizer.json")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tok.VocabSize(); got != 5 {
		t.Errorf("VocabSize() = %d, want 5", got)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := writeFixture(t, map[string]string{"tokenizer.json": minimalConfig})

	tok := New()
	if err := tok.Load(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnsupported(t *testing.T) {
	cases := []struct {
		name    string
		config  string
		errText string
	}{
		{
			name:    "wordpiece model",
			config:  `{"model": {"type": "WordPiece", "vocab": {"[UNK]": 0}}}`,
			errText: "unsupported tokenizer type",
		},
		{
			name: "normalizer present",
			config: `{
				"model": {"type": "BPE", "vocab": {"a": 0}, "merges": []},
				"normalizer": {"type": "NFC"}
			}`,
			errText: "unsupported normalizer",
		},
		{
			name: "whitespace pre_tokenizer",
			config: `{
				"model": {"type": "BPE", "vocab": {"a": 0}, "merges": []},
				"pre_tokenizer": {"type": "Whitespace"}
			}`,
			errText: "unsupported pre_tokenizer",
		},
		{
			name:    "malformed document",
			config:  `{"model": {`,
			errText: "could not parse tokenizer",
		},
		{
			name: "duplicate vocab ids",
			config: `{
				"model": {"type": "BPE", "vocab": {"a": 0, "b": 0}, "merges": []}
			}`,
			errText: "duplicate id",
		},
		{
			name: "duplicate vocab strings",
			config: `{
				"model": {"type": "BPE", "vocab": {"a": 0, "a": 1}, "merges": []}
			}`,
			errText: "duplicate token",
		},
		{
			name: "vocab not an object",
			config: `{
				"model": {"type": "BPE", "vocab": [["a", 0]], "merges": []}
			}`,
			errText: "expected an object",
		},
		{
			name: "malformed merge entry",
			config: `{
				"model": {"type": "BPE", "vocab": {"a": 0}, "merges": [["a", "b", "c"]]}
			}`,
			errText: "expected pair of length 2",
		},
		{
			name: "added token id collision",
			config: `{
				"model": {"type": "BPE", "vocab": {"a": 0}, "merges": []},
				"added_tokens": [{"id": 0, "content": "<|x|>"}]
			}`,
			errText: "duplicate id",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFixture(t, map[string]string{"tokenizer.json": tt.config})

			tok := New()
			err := tok.Load(filepath.Join(dir, "tokenizer.json"))
			if !errors.Is(err, ErrLoad) {
				t.Fatalf("expected ErrLoad, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error %q does not contain %q", err, tt.errText)
			}
		})
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	dir := writeFixture(t, map[string]string{"tokenizer.json": minimalConfig})

	tok := New()
	if err := tok.Load(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := tok.Load(filepath.Join(dir, "missing")); !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}

	// the failed reload must leave the previous tables usable
	ids, err := tok.Encode("abc", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != 4 {
		t.Errorf("Encode() = %v, want [4]", ids)
	}
}

func TestLoadSpecialTokensMap(t *testing.T) {
	dir := writeFixture(t, map[string]string{
		"tokenizer.json": `{
			"model": {"type": "BPE", "vocab": {"a": 0}, "merges": []},
			"pre_tokenizer": {"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": false, "use_regex": false},
			"added_tokens": [
				{"id": 128000, "content": "<|begin_of_text|>", "special": true},
				{"id": 128009, "content": "<|eot_id|>", "special": true}
			]
		}`,
		"special_tokens_map.json": `{
			"bos_token": "<|begin_of_text|>",
			"eos_token": {"content": "<|eot_id|>", "lstrip": false}
		}`,
	})

	tok := New()
	if err := tok.Load(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tok.BosTok(); got != 128000 {
		t.Errorf("BosTok() = %d, want 128000", got)
	}
	if got := tok.EosTok(); got != 128009 {
		t.Errorf("EosTok() = %d, want 128009", got)
	}
	if !tok.IsSpecial(128000) || !tok.IsSpecial(128009) {
		t.Error("special token ids not marked special")
	}
}

func TestLoadGenerationConfigPriority(t *testing.T) {
	dir := writeFixture(t, map[string]string{
		"tokenizer.json": `{
			"model": {"type": "BPE", "vocab": {"a": 0}, "merges": []},
			"added_tokens": [
				{"id": 7, "content": "<s>", "special": true},
				{"id": 8, "content": "</s>", "special": true}
			]
		}`,
		"generation_config.json": `{"bos_token_id": 7, "eos_token_id": [8, 9]}`,
		"tokenizer_config.json":  `{"bos_token": "</s>", "eos_token": "<s>"}`,
	})

	tok := New()
	if err := tok.Load(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// generation_config ids win over tokenizer_config strings
	if got := tok.BosTok(); got != 7 {
		t.Errorf("BosTok() = %d, want 7", got)
	}
	if got := tok.EosTok(); got != 8 {
		t.Errorf("EosTok() = %d, want 8", got)
	}
}

func TestLoadTokenizerConfigAddFlags(t *testing.T) {
	dir := writeFixture(t, map[string]string{
		"tokenizer.json":        minimalConfig,
		"tokenizer_config.json": `{"add_bos_token": true, "add_eos_token": false}`,
	})

	tok := New()
	if err := tok.Load(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tok.AddBos() {
		t.Error("AddBos() = false, want true")
	}
	if tok.AddEos() {
		t.Error("AddEos() = true, want false")
	}
}

func TestLoadCompanionAbsenceIsNotAnError(t *testing.T) {
	dir := writeFixture(t, map[string]string{"tokenizer.json": minimalConfig})

	tok := New()
	if err := tok.Load(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// nothing configured: bos and eos fall back to the default id
	if got := tok.BosTok(); got != 0 {
		t.Errorf("BosTok() = %d, want 0", got)
	}
	if got := tok.EosTok(); got != 0 {
		t.Errorf("EosTok() = %d, want 0", got)
	}
}
