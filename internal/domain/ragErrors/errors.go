// Package ragErrors defines the error kinds the pipeline reports to its callers.
// Kinds are sentinels; concrete errors wrap a kind and, where there is one, the
// underlying cause, so errors.Is works for both.
package ragErrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyCorpus means there are no documents to build an index from.
	ErrEmptyCorpus = errors.New("no documents found")

	// ErrIndexCorruption means a persisted index exists but cannot be restored cleanly.
	ErrIndexCorruption = errors.New("persisted index is corrupt")

	// ErrRetrieval covers embedding and search failures.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration covers a failed, timed out or unusable language model call.
	ErrGeneration = errors.New("generation failed")

	// ErrValidation marks a malformed request rejected before any pipeline work.
	ErrValidation = errors.New("invalid request")
)

// EmptyCorpusMessage is what callers see when there is nothing to search.
const EmptyCorpusMessage = "No documents found. Please add documents to the data directory."

func Wrap(kind error, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

func Validation(format string, args ...any) error {
	return Wrap(ErrValidation, nil, format, args...)
}

func Corruption(cause error, format string, args ...any) error {
	return Wrap(ErrIndexCorruption, cause, format, args...)
}

// HTTPStatus maps an error kind to the status code reported at the API boundary.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyCorpus):
		return http.StatusNotFound
	case errors.Is(err, ErrRetrieval), errors.Is(err, ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller facing message for err.
func Message(err error) string {
	if errors.Is(err, ErrEmptyCorpus) {
		return EmptyCorpusMessage
	}
	return err.Error()
}
