package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/types"
)

func TestPrefetch_LoadsBothLists(t *testing.T) {
	src := &countingSource{
		variables: []types.Candidate{{Name: "A", Reference: "a"}},
		secrets: map[types.KeyType][]types.Candidate{
			types.KeyTypeSecret: {{Name: "Token", Reference: "token"}},
		},
	}

	snap, err := Prefetch(context.Background(), src, types.KeyTypeSecret)
	require.NoError(t, err)
	assert.Equal(t, []types.Candidate{{Name: "A", Reference: "a"}}, snap.Variables)
	assert.Equal(t, []types.Candidate{{Name: "Token", Reference: "token"}}, snap.Secrets)
}

func TestPrefetch_ReturnsFirstError(t *testing.T) {
	src := &countingSource{err: errors.New("offline")}

	snap, err := Prefetch(context.Background(), src, types.KeyTypeSecret)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
	assert.Empty(t, snap.Variables)
}

func TestOpen_Store(t *testing.T) {
	settings := config.DefaultSettings()
	dbPath := filepath.Join(t.TempDir(), "towered.db")

	src, closeFn, err := Open(context.Background(), settings, dbPath, discardLogger())
	require.NoError(t, err)
	defer closeFn()

	items, err := src.Variables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOpen_Manifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0644))

	settings := config.DefaultSettings()
	settings.Source = config.SourceManifest
	settings.Manifest = path

	src, closeFn, err := Open(context.Background(), settings, "", discardLogger())
	require.NoError(t, err)
	defer closeFn()

	items, err := src.Secrets(context.Background(), types.KeyTypeSSH)
	require.NoError(t, err)
	assert.Equal(t, []types.Candidate{{Name: "Deploy Key", Reference: "deploy_key"}}, items)
}

func TestOpen_UnknownSource(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Source = "ldap"

	_, _, err := Open(context.Background(), settings, "", discardLogger())
	assert.ErrorIs(t, err, config.ErrUnknownSource)
}

func TestOpen_RemoteRequiresBaseURL(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Source = config.SourceRemote

	_, _, err := Open(context.Background(), settings, "", discardLogger())
	assert.Error(t, err)
}
