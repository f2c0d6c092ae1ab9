package storage_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/campus-cafe/internal/storage"
)

func TestLocalStore_SaveOpenExists(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	ok, err := store.Exists("qr_code_S1.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save("qr_code_S1.png", []byte("png-bytes")))

	ok, err = store.Exists("qr_code_S1.png")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Open("qr_code_S1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	assert.Equal(t, "/media/qr_code_S1.png", store.URL("qr_code_S1.png"))
}

func TestLocalStore_InvalidKeys(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../etc/passwd", `a\b`, "dir/file.png"} {
		assert.ErrorIs(t, store.Save(key, []byte("x")), storage.ErrInvalidKey, key)
	}
}

func TestLocalStore_OpenMissing(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	_, err = store.Open("missing.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, store.Delete("missing.png"))
}

func TestLocalStore_Handler(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)
	require.NoError(t, store.Save("qr_code_S2.png", []byte("hello")))

	req := httptest.NewRequest(http.MethodGet, "/media/qr_code_S2.png", nil)
	rr := httptest.NewRecorder()
	store.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())
}
