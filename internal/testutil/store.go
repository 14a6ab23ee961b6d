// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/nhle/card-statements/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard)
}
