package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cetmix/towered/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "nested", "towered.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.UpsertVariable(ctx, types.Variable{Name: "Zone", Reference: "zone"}))
	require.NoError(t, store.UpsertVariable(ctx, types.Variable{Name: "Branch", Reference: "git_branch"}))
	require.NoError(t, store.UpsertVariable(ctx, types.Variable{Name: "Git Branch", Reference: "git_branch", Note: "renamed"}))

	variables, err := store.ListVariables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Variable{
		{Name: "Git Branch", Reference: "git_branch", Note: "renamed"},
		{Name: "Zone", Reference: "zone"},
	}, variables)

	candidates, err := store.Variables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Candidate{
		{Name: "Git Branch", Reference: "git_branch"},
		{Name: "Zone", Reference: "zone"},
	}, candidates)
}

func TestStore_UpsertRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	err := store.UpsertVariable(ctx, types.Variable{Name: "Bad", Reference: "has space"})
	assert.ErrorIs(t, err, types.ErrInvalidReference)

	err = store.UpsertKey(ctx, types.Key{Name: "Empty"})
	assert.ErrorIs(t, err, types.ErrEmptyReference)
}

func TestStore_KeysByType(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.UpsertKey(ctx, types.Key{Name: "Token", Reference: "token"}))
	require.NoError(t, store.UpsertKey(ctx, types.Key{Name: "Deploy", Reference: "deploy", KeyType: types.KeyTypeSSH}))

	secrets, err := store.Secrets(ctx, types.KeyTypeSecret)
	require.NoError(t, err)
	assert.Equal(t, []types.Candidate{{Name: "Token", Reference: "token"}}, secrets)

	keys, err := store.ListKeys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.UpsertVariable(ctx, types.Variable{Name: "A", Reference: "a"}))

	deleted, err := store.DeleteVariable(ctx, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteVariable(ctx, "a")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.DeleteKey(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_ImportManifest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	m, err := ParseManifest([]byte(testManifest))
	require.NoError(t, err)

	result, err := store.ImportManifest(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Variables: 2, Keys: 3}, result)

	// Importing again updates in place
	result, err = store.ImportManifest(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Variables: 2, Keys: 3}, result)

	variables, err := store.ListVariables(ctx)
	require.NoError(t, err)
	assert.Len(t, variables, 2)

	ssh, err := store.Secrets(ctx, types.KeyTypeSSH)
	require.NoError(t, err)
	assert.Equal(t, []types.Candidate{{Name: "Deploy Key", Reference: "deploy_key"}}, ssh)
}

func TestStore_ImportManifestRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	m, err := ParseCandidateFile([]byte(`{"variables": [
		{"name": "Good", "reference": "good"},
		{"name": "Bad", "reference": "bad ref"}
	]}`))
	require.NoError(t, err)

	_, err = store.ImportManifest(ctx, m)
	require.Error(t, err)

	variables, err := store.ListVariables(ctx)
	require.NoError(t, err)
	assert.Empty(t, variables)
}
