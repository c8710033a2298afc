// Package testutil provides shared test helpers for merchcat packages.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/storage"
	"github.com/Veraticus/merchcat/internal/testutil/trainingset"
)

// TestDB is a migrated in-memory database seeded with training examples.
type TestDB struct {
	Storage  *storage.SQLiteStorage
	t        *testing.T
	Examples []model.TrainingExample
}

// SetupTestDB creates a migrated in-memory database seeded with the given
// fixtures. Cleanup is registered on t.
//
// Example:
//
//	db := testutil.SetupTestDB(t, trainingset.FixtureStandard)
func SetupTestDB(t *testing.T, fixtures ...trainingset.Fixture) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	builder := trainingset.NewBuilder(t)
	for _, f := range fixtures {
		builder = builder.WithFixture(f)
	}

	var examples []model.TrainingExample
	if len(fixtures) > 0 {
		examples, err = builder.Seed(ctx, store)
		if err != nil {
			t.Fatalf("failed to seed training examples: %v", err)
		}
	}

	return &TestDB{
		Storage:  store,
		Examples: examples,
		t:        t,
	}
}

// MustCount returns the number of stored examples or fails the test.
func (db *TestDB) MustCount() int {
	db.t.Helper()
	n, err := db.Storage.CountTrainingExamples(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count training examples: %v", err)
	}
	return n
}
