package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{ErrInvalidAmount, KindInvalidAmount},
		{fmt.Errorf("create budget: %w", ErrInvalidAmount), KindInvalidAmount},
		{Invalid("title", "is required"), KindValidation},
		{ErrInvalidMonth, KindValidation},
		{ErrBudgetExists, KindConflict},
		{fmt.Errorf("store: %w", ErrConflict), KindConflict},
		{ErrNotFound, KindNotFound},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.kind {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := Invalid("title", "is required")
	if err.Error() != "title: is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected ValidationError for title, got %v", err)
	}
}
