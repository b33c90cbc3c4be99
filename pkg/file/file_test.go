package file_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/soil-node/pkg/file"
)

func TestFileService_ReadYamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: node\nsamples: 10\n"), 0600))

	var out struct {
		Name    string `yaml:"name"`
		Samples int    `yaml:"samples"`
	}
	err := file.NewFileService().ReadYamlFile(path, &out)

	require.NoError(t, err)
	assert.Equal(t, "node", out.Name)
	assert.Equal(t, 10, out.Samples)
}

func TestFileService_ReadYamlFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	out := struct {
		Samples int `yaml:"samples"`
	}{Samples: 3}

	require.NoError(t, file.NewFileService().ReadYamlFile(path, &out))
	assert.Equal(t, 3, out.Samples)
}

func TestFileService_ReadJsonFile_Missing(t *testing.T) {
	var out map[string]any
	err := file.NewFileService().ReadJsonFile(filepath.Join(t.TempDir(), "missing.json"), &out)

	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.ErrorContains(t, err, "missing.json")
}

func TestFileService_ReadJsonFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))

	var out map[string]any
	err := file.NewFileService().ReadJsonFile(path, &out)

	require.Error(t, err)
	assert.ErrorContains(t, err, "decode")
	assert.False(t, errors.Is(err, os.ErrNotExist))
}

func TestFileService_ReadFileRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0600))

	raw, err := file.NewFileService().ReadFileRaw(path)

	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)
}
