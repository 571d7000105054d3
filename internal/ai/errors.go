package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedModelOutput — в ответе модели нет разбираемого JSON-объекта.
	ErrMalformedModelOutput = errors.New("malformed model output")

	// ErrUpstreamUnavailable — сетевой сбой или ошибка API модели.
	ErrUpstreamUnavailable = errors.New("model backend unavailable")
)

// InvalidQuerySpecError — JSON разобрался, но не прошел схему QuerySpec.
// Ошибки полей сохраняются как есть, без дальнейшей коэрции.
type InvalidQuerySpecError struct {
	Errors []string
}

func (e *InvalidQuerySpecError) Error() string {
	return fmt.Sprintf("invalid query spec: %s", strings.Join(e.Errors, "; "))
}
