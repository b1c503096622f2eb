// Package gerr holds the sentinel errors shared across the engine's leaf
// packages. It exists so those packages (parser, embedder, ...) can wrap a
// stable error identity without importing the root package, which would
// otherwise create an import cycle (root -> retrieval -> parser -> root).
package gerr

import "errors"

// Sentinel errors for the engine's error taxonomy. Callers match with
// errors.Is; call sites wrap with fmt.Errorf("%w: detail", ErrX) to attach
// context. The parser and embedder wrap ErrUnsupportedFormat,
// ErrEmptyDocument, ErrParseFailed and ErrEmbedderProtocol, and the chat
// orchestrator wraps ErrGenerationFailed; no package in this module returns
// the remaining ones.
var (
	// ErrBadRequest identifies a malformed init frame or empty message.
	ErrBadRequest = errors.New("gorag: bad request")

	// ErrUnsupportedFormat is returned for unrecognized file extensions.
	ErrUnsupportedFormat = errors.New("gorag: unsupported document format")

	// ErrEmptyDocument is returned when a parse yields no usable text.
	ErrEmptyDocument = errors.New("gorag: document is empty after parsing")

	// ErrParseFailed is returned when document parsing fails outright.
	ErrParseFailed = errors.New("gorag: parsing failed")

	// ErrEmbedderProtocol is returned when a remote embedder's response is
	// malformed or otherwise violates its wire contract.
	ErrEmbedderProtocol = errors.New("gorag: embedder protocol violation")

	// ErrBackendUnavailable identifies an LM backend that cannot be reached.
	ErrBackendUnavailable = errors.New("gorag: LM backend unavailable")

	// ErrModelUnknown identifies a configured model name that the backend
	// rejects.
	ErrModelUnknown = errors.New("gorag: unknown model")

	// ErrGenerationFailed is returned when a generation ends with an empty
	// final answer.
	ErrGenerationFailed = errors.New("gorag: generation failed")

	// ErrStorageCorrupt identifies a vector index whose on-disk payload and
	// metadata are inconsistent (e.g. a partial write after a crash).
	ErrStorageCorrupt = errors.New("gorag: storage corrupt")

	// ErrCancelled identifies a request abandoned by the caller.
	ErrCancelled = errors.New("gorag: request cancelled")

	// ErrChatNotFound identifies a chat_id that does not resolve.
	ErrChatNotFound = errors.New("gorag: chat not found")

	// ErrNotLoaded identifies an operation that needs the vector index to
	// have been built at least once.
	ErrNotLoaded = errors.New("gorag: index not loaded")
)
