package rag

import (
	"errors"

	"github.com/smallnest/docchat/rag/store"
)

var (
	// ErrEmptyCorpus is returned when the uploaded files yield no text to index.
	ErrEmptyCorpus = store.ErrEmptyCorpus
	// ErrNoModerator is returned when moderation is enabled without a Moderator.
	ErrNoModerator = errors.New("moderation enabled but no moderator configured")
	// ErrMissingDependency is returned when the model or embedder is nil.
	ErrMissingDependency = errors.New("missing pipeline dependency")
	// ErrInvalidFileName is returned for an upload without a usable base name.
	ErrInvalidFileName = errors.New("invalid file name")
)
