package apperrors

import "errors"

var (
	ErrTurnSuperseded      = errors.New("turn superseded by a newer question")
	ErrMetadataUnavailable = errors.New("metadata index unavailable")
	ErrModelUnavailable    = errors.New("language model unavailable")
	ErrEmptyQuestion       = errors.New("question is empty")
	ErrUnknownDialect      = errors.New("unknown database dialect")
)
