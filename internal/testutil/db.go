// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/timmy/recordhub/internal/config"
	"github.com/timmy/recordhub/internal/repository"
)

// NewStore opens a migrated in-memory SQLite database private to the test.
func NewStore(t testing.TB) *repository.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		AutoMigrate: true,
		LogLevel:    "silent",
	}
	db, err := repository.InitDB(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}
