package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shareit/internal/database"
	"shareit/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturesYAML = `
users:
  - name: Anna
    email: anna@example.com
  - name: Boris
    email: boris@example.com
items:
  - owner_email: anna@example.com
    name: Drill
    description: Cordless drill
    available: true
  - owner_email: BORIS@example.com
    name: Tent
    description: Two person tent
    available: false
`

func writeFixtures(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFixtures(t *testing.T) {
	f, err := loadFixtures(writeFixtures(t, fixturesYAML))
	require.NoError(t, err)
	assert.Len(t, f.Users, 2)
	assert.Len(t, f.Items, 2)
	assert.Equal(t, "BORIS@example.com", f.Items[1].OwnerEmail)

	_, err = loadFixtures(writeFixtures(t, "users: []\n"))
	assert.Error(t, err)

	_, err = loadFixtures(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply_Idempotent(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "seed.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	f, err := loadFixtures(writeFixtures(t, fixturesYAML))
	require.NoError(t, err)

	res, err := apply(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, result{usersCreated: 2, itemsCreated: 2}, res)

	f.Items[0].Available = false
	res, err = apply(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, result{itemsUpdated: 2}, res)

	users, err := db.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	items, err := db.GetItemsByOwner(ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Available)
}

func TestApply_UnknownOwner(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "seed.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f, err := loadFixtures(writeFixtures(t, "items:\n  - owner_email: ghost@example.com\n    name: Ladder\n"))
	require.NoError(t, err)

	_, err = apply(context.Background(), db, f)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
