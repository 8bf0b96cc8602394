package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func parseRunID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("parse run id %q: %w", s, err)
	}
	return id, nil
}

func nowMinus(d time.Duration) time.Time {
	return time.Now().Add(-d)
}
