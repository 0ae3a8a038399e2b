package tokenizer

import "errors"

// Error kinds returned by the tokenizer. Callers should test with errors.Is;
// the concrete error carries detail about what went wrong.
var (
	// ErrUninitialized is returned by Encode and Decode before a
	// successful Load.
	ErrUninitialized = errors.New("tokenizer not loaded")

	// ErrLoad covers unreadable paths, malformed documents, and
	// configurations requiring features this engine does not implement
	// (non-BPE models, normalizers, non-ByteLevel pre-tokenizers).
	ErrLoad = errors.New("load failure")

	// ErrEncode covers per-call encode failures: a symbol absent from the
	// vocabulary with no unk token configured, or a request referencing an
	// unresolved special token.
	ErrEncode = errors.New("encode failure")

	// ErrDecode is returned when an id is not present in the vocabulary.
	ErrDecode = errors.New("decode failure")
)
