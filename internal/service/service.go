// Package service provides business logic for the application.
package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Service errors shared across services.
var (
	ErrInvalidUserID       = errors.New("user_id is required")
	ErrInvalidAmount       = errors.New("amount must be a non-zero integer")
	ErrAccountNotFound     = errors.New("no credit account for user")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

const (
	maxUserIDLength = 128
	maxReasonLength = 500
)

func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) > maxUserIDLength {
		return "", ErrInvalidUserID
	}
	return userID, nil
}

// truncateReason trims reason to at most maxReasonLength bytes without
// splitting a UTF-8 sequence.
func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxReasonLength {
		return reason
	}
	n := maxReasonLength
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

// generateULID creates a new ULID string.
func generateULID() string {
	return ulid.Make().String()
}
