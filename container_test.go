package erfix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRejectsUnknownSize(t *testing.T) {
	path := writeContainer(t, make([]byte, 1000))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Contains(t, err.Error(), path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.sl2"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRecognizesFormat(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	buf := buildContainer(t, l, 4242, 0)
	path := writeContainer(t, buf)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-mini", c.Layout().Name)
	assert.Equal(t, SteamID(4242), c.Identifier())
}

func TestRoundTripIsByteIdentical(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	original := buildContainer(t, l, 4242, 0, 1)
	path := writeContainer(t, original)

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Store(path))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	requireBytesEqual(t, original, after, "load/store round trip must not change bytes")
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	path := writeContainer(t, buildContainer(t, l, 7, 0))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Store(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".er-save-"),
			"temp file %s left behind", e.Name())
	}
}

func TestStoreCreatesMissingTarget(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	buf := buildContainer(t, l, 7, 0)
	src := writeContainer(t, buf)

	c, err := Load(src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "copy.sl2")
	require.NoError(t, c.Store(dst))

	after, err := os.ReadFile(dst)
	require.NoError(t, err)
	requireBytesEqual(t, buf, after, "store to a new path must write the full container")
}
