package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("class-10a", "timetables/class-10a.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	ownerID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "class-10a", ownerID)
	require.Equal(t, "timetables/class-10a.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("class-1", "timetables/file.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	ownerID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "class-1", ownerID)
	require.Equal(t, "timetables/file.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("class-1", "timetables/file.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "class-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = signer.Parse("garbage", false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalStorageKeepsFilesInsideBaseDir(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	rel, err := store.Save("../escape.csv", []byte("x"))
	require.NoError(t, err)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close()
	assert.True(t, strings.HasPrefix(file.Name(), base))

	_, err = os.Stat(base + "/escape.csv")
	assert.NoError(t, err)

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageCleanupOlderThanNested(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	_, err = store.Save("timetables/old.csv", []byte("x"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(base+"/timetables/old.csv", old, old))
	_, err = store.Save("timetables/new.csv", []byte("y"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"timetables/old.csv"}, deleted)
}
