// Package storage keeps uploaded payment proofs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultMaxBytes = 5 << 20

var (
	ErrTooLarge   = errors.New("file exceeds size limit")
	ErrNotImage   = errors.New("file is not a png, jpeg, webp or gif image")
	ErrEmptyFile  = errors.New("file is empty")
	ErrInvalidKey = errors.New("invalid object key")
)

// Handler serves stored proofs with the content type they were accepted
// as. Anything else under the directory is not served.
func (s *FS) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct, ok := ContentTypeFor(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		files.ServeHTTP(w, r)
	})
}

// Object is a stored file and where clients can fetch it
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store persists proofs
type Store interface {
	Put(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (Object, error)
}

// FS stores proofs on the local filesystem
type FS struct {
	dir       string
	publicURL string
	maxBytes  int64
	now       func() time.Time
}

func NewFS(dir, publicURL string, maxBytes int64) (*FS, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FS{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
		now:       time.Now,
	}, nil
}

// Dir is the root served under the public URL
func (s *FS) Dir() string { return s.dir }

// allowedTypes are the raster formats accepted as proofs, keyed by sniffed
// MIME type. Scriptable image formats such as SVG are excluded.
var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Key builds {userID}/{unixMillis}{ext}. The extension always comes from the
// sniffed content, never from the client's filename.
func Key(userID uuid.UUID, now time.Time, ext string) string {
	return fmt.Sprintf("%s/%d%s", userID, now.UnixMilli(), ext)
}

// ContentTypeFor maps a stored key back to the type it was accepted as
func ContentTypeFor(key string) (string, bool) {
	ext := strings.ToLower(path.Ext(key))
	for ct, e := range allowedTypes {
		if e == ext {
			return ct, true
		}
	}
	return "", false
}

func (s *FS) Put(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Object{}, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return Object{}, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	ext, ok := allowedTypes[mt.String()]
	if !ok {
		log.Debug().Str("filename", filename).Str("content_type", mt.String()).Msg("proof rejected")
		return Object{}, ErrNotImage
	}

	key := Key(userID, s.now(), ext)
	full, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("create object dir: %w", err)
	}

	// write to a temp file first so readers never see partial uploads
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("store upload: %w", err)
	}

	log.Debug().Str("key", key).Str("content_type", mt.String()).Int("size", len(data)).Msg("proof stored")

	return Object{
		Key:         key,
		URL:         s.publicURL + "/" + key,
		ContentType: mt.String(),
		Size:        int64(len(data)),
	}, nil
}

func (s *FS) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}
