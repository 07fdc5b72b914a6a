package domain

import (
	"errors"
	"fmt"
)

var (
	ErrClaimNotFound = errors.New("claim not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")

	// ErrPolicyConfig marks a malformed or inconsistent policy configuration.
	// This is a system fault, not a business outcome: callers route the claim
	// to manual review instead of guessing a decision.
	ErrPolicyConfig = errors.New("policy configuration fault")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
