package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const testConfig = `{
	"model": {
		"type": "BPE",
		"vocab": {"a": 0, "b": 1, "c": 2, "ab": 3, "abc": 4},
		"merges": ["a b", "ab c"]
	},
	"pre_tokenizer": {"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": false, "use_regex": false}
}`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)

	// capture stdout since the commands print with fmt
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	os.Stdout = w
	execErr := cmd.Execute()
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.String(), execErr
}

func TestEncodeCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runCLI(t, "encode", "--tokenizer", path, "--bos", "1", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "0 4\n" {
		t.Errorf("encode output = %q, want %q", out, "0 4\n")
	}
}

func TestDecodeCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runCLI(t, "decode", "--tokenizer", path, "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "abc\n" {
		t.Errorf("decode output = %q, want %q", out, "abc\n")
	}
}

func TestInspectCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runCLI(t, "inspect", "--tokenizer", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "vocab size: 5\nbos: 0\neos: 0\n"
	if out != want {
		t.Errorf("inspect output = %q, want %q", out, want)
	}
}

func TestMissingTokenizerFlag(t *testing.T) {
	if _, err := runCLI(t, "encode", "abc"); err == nil {
		t.Fatal("expected error without --tokenizer")
	}
}
