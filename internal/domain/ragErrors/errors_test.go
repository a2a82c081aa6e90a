package ragErrors

import (
	"errors"
	"net/http"
	"testing"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	cause := errors.New("upstream 503")
	err := Wrap(ErrGeneration, cause, "model %s", "gpt")

	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected generation kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if got := err.Error(); got != "generation failed: model gpt: upstream 503" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation("query is required"), http.StatusBadRequest},
		{Wrap(ErrEmptyCorpus, nil, "data"), http.StatusNotFound},
		{Wrap(ErrRetrieval, errors.New("x"), "embed"), http.StatusBadGateway},
		{Wrap(ErrGeneration, errors.New("x"), "complete"), http.StatusBadGateway},
		{Corruption(nil, "checksum"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d; want %d", tt.err, got, tt.want)
		}
	}
}

func TestEmptyCorpusMessage(t *testing.T) {
	if got := Message(Wrap(ErrEmptyCorpus, nil, "dir %s", "data")); got != EmptyCorpusMessage {
		t.Errorf("got %q", got)
	}
}
