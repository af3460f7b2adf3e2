package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header + IHDR chunk is enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xDE,
}

func newStore(t *testing.T, max int64) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir(), "http://localhost:8080/proofs/", max)
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return s
}

func TestPutStoresImage(t *testing.T) {
	s := newStore(t, 0)
	uid := uuid.MustParse("6f1c1a53-6a49-4d8a-9e8e-2b8c3f0d7a11")

	obj, err := s.Put(context.Background(), uid, "Captura de pantalla.PNG", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	assert.Equal(t, "6f1c1a53-6a49-4d8a-9e8e-2b8c3f0d7a11/1700000000123.png", obj.Key)
	assert.Equal(t, "http://localhost:8080/proofs/"+obj.Key, obj.URL)
	assert.Equal(t, "image/png", obj.ContentType)

	stored, err := os.ReadFile(filepath.Join(s.Dir(), filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestPutUsesSniffedExtensionWhenMissing(t *testing.T) {
	s := newStore(t, 0)
	obj, err := s.Put(context.Background(), uuid.New(), "proof", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(obj.Key))
}

func TestPutRejects(t *testing.T) {
	s := newStore(t, 16)
	ctx := context.Background()

	_, err := s.Put(ctx, uuid.New(), "a.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = s.Put(ctx, uuid.New(), "a.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrTooLarge)

	big := newStore(t, 0)
	_, err = big.Put(ctx, uuid.New(), "a.png", bytes.NewReader([]byte("%PDF-1.4 not an image")))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestPutRejectsScriptableImages(t *testing.T) {
	s := newStore(t, 0)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)

	_, err := s.Put(context.Background(), uuid.New(), "proof.svg", bytes.NewReader(svg))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestPutIgnoresClientExtension(t *testing.T) {
	s := newStore(t, 0)
	obj, err := s.Put(context.Background(), uuid.New(), "proof.html", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(obj.Key))
}

func TestHandlerServesSniffedType(t *testing.T) {
	s := newStore(t, 0)
	obj, err := s.Put(context.Background(), uuid.New(), "proof.html", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	// a file planted next to the proofs is never served
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "x.html"), []byte("<script>alert(1)</script>"), 0o644))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+obj.Key, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKey(t *testing.T) {
	uid := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	now := time.UnixMilli(42)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001/42.jpg", Key(uid, now, ".jpg"))
	assert.Equal(t, "00000000-0000-0000-0000-000000000001/42.png", Key(uid, now, ".png"))
}
