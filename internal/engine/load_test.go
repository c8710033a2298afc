package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/storage"
	"github.com/Veraticus/merchcat/internal/testutil"
	"github.com/Veraticus/merchcat/internal/testutil/trainingset"
)

// storeModel trains on the database's examples and saves the result as the
// active artifact.
func storeModel(t *testing.T, db *testutil.TestDB) *Model {
	t.Helper()
	ctx := context.Background()

	examples, err := db.Storage.GetTrainingExamples(ctx)
	require.NoError(t, err)
	require.Len(t, examples, db.MustCount())

	m, _, err := Train(ctx, examples, DefaultTrainingConfig(), nil)
	require.NoError(t, err)

	data, err := m.MarshalBinary()
	require.NoError(t, err)
	info := m.Info
	info.Checksum, err = ArtifactChecksum(data)
	require.NoError(t, err)

	require.NoError(t, db.Storage.SaveArtifact(ctx, &info, data, true))
	return m
}

func TestLoad_FromDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t, trainingset.FixtureStandard)
	trained := storeModel(t, db)

	e := Load(context.Background(), db.Storage, DefaultConfig())
	require.NoError(t, e.Err())
	require.True(t, e.Ready())

	info, ok := e.Info()
	require.True(t, ok)
	assert.Equal(t, trained.Info.ID, info.ID)

	result, err := e.Categorize("SHELL OIL 57442")
	require.NoError(t, err)
	assert.Equal(t, "Fuel", result.Category)
}

func TestLoad_FromFile(t *testing.T) {
	m := trainFixture(t, trainingset.FixtureStandard)
	data, err := m.MarshalBinary()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.mcat")
	require.NoError(t, storage.WriteArtifactFile(path, data))

	e := Load(context.Background(), storage.ArtifactFile(path), DefaultConfig())
	require.NoError(t, e.Err())

	result, err := e.Categorize("Netflix")
	require.NoError(t, err)
	assert.Equal(t, "Entertainment", result.Category)
}

func TestLoad_Unavailable(t *testing.T) {
	corrupt := ArtifactSourceFunc(func(context.Context) ([]byte, error) {
		return []byte("MCAT garbage"), nil
	})
	failing := ArtifactSourceFunc(func(context.Context) ([]byte, error) {
		return nil, errors.New("disk on fire")
	})

	tests := []struct {
		src  ArtifactSource
		name string
	}{
		{name: "empty database", src: testutil.SetupTestDB(t).Storage},
		{name: "missing file", src: storage.ArtifactFile(filepath.Join(t.TempDir(), "absent.mcat"))},
		{name: "corrupt artifact", src: corrupt},
		{name: "read error", src: failing},
		{name: "nil source", src: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Load(context.Background(), tt.src, DefaultConfig())
			assert.False(t, e.Ready())
			require.ErrorIs(t, e.Err(), common.ErrModelUnavailable)

			_, err := e.Categorize("Starbucks")
			assert.ErrorIs(t, err, common.ErrModelUnavailable)
		})
	}
}
