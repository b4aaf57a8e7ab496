package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/usecase"
)

func TestErrors_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrConversationNotFound", usecase.ErrConversationNotFound},
		{"ErrEmptyMessage", usecase.ErrEmptyMessage},
		{"ErrUnknownPromptType", usecase.ErrUnknownPromptType},
		{"ErrInvalidPrompt", usecase.ErrInvalidPrompt},
		{"ErrNoCompleter", usecase.ErrNoCompleter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.err).NotNil()
		})
	}
}

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	gt.Bool(t, errors.Is(usecase.ErrConversationNotFound, usecase.ErrEmptyMessage)).False()
	gt.Bool(t, errors.Is(usecase.ErrUnknownPromptType, usecase.ErrInvalidPrompt)).False()
}
