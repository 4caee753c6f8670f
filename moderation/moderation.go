// Package moderation checks generated answers against a content policy.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFlagged matches every *FlaggedError.
var ErrFlagged = errors.New("text was found that violates the content policy")

// Result is the verdict for one text.
type Result struct {
	Flagged    bool
	Categories []string
}

// Moderator classifies text.
type Moderator interface {
	Check(ctx context.Context, text string) (Result, error)
}

// Func adapts a function to Moderator.
type Func func(ctx context.Context, text string) (Result, error)

func (f Func) Check(ctx context.Context, text string) (Result, error) { return f(ctx, text) }

// FlaggedError reports flagged text and the categories that triggered it.
type FlaggedError struct {
	Categories []string
}

func (e *FlaggedError) Error() string {
	if len(e.Categories) == 0 {
		return ErrFlagged.Error()
	}
	return fmt.Sprintf("%s (%s)", ErrFlagged, strings.Join(e.Categories, ", "))
}

func (e *FlaggedError) Is(target error) bool { return target == ErrFlagged }
