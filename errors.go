package gorag

import "github.com/lavandejoey/gorag/gerr"

// Sentinel errors for the taxonomy an implementation of this engine must
// surface. Callers match with errors.Is; call sites wrap with
// fmt.Errorf("%w: detail", ErrX) to attach context.
//
// These alias gerr's sentinels rather than redeclaring them, so a caller
// matching against gorag.ErrX also matches an error a leaf package (parser,
// embedder, ...) wrapped against gerr.ErrX directly, without those packages
// having to import this one.
var (
	ErrBadRequest         = gerr.ErrBadRequest
	ErrUnsupportedFormat  = gerr.ErrUnsupportedFormat
	ErrEmptyDocument      = gerr.ErrEmptyDocument
	ErrParseFailed        = gerr.ErrParseFailed
	ErrEmbedderProtocol   = gerr.ErrEmbedderProtocol
	ErrBackendUnavailable = gerr.ErrBackendUnavailable
	ErrModelUnknown       = gerr.ErrModelUnknown
	ErrGenerationFailed   = gerr.ErrGenerationFailed
	ErrStorageCorrupt     = gerr.ErrStorageCorrupt
	ErrCancelled          = gerr.ErrCancelled
	ErrChatNotFound       = gerr.ErrChatNotFound
	ErrNotLoaded          = gerr.ErrNotLoaded
)
