package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrGeneration wraps any failed generation call. It aborts the whole analysis run.
var ErrGeneration = errors.New("ai generation failed")
