// Package upload stores dish and restaurant images and hands back the URL
// the backend is told about. The original product pushed images straight to
// a third-party image host from the browser; here the widget streams the
// file through the session and this package owns the storage call.
package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrTooLarge is returned when a file exceeds the store's size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrUnsupportedType is returned for non-image content types.
var ErrUnsupportedType = errors.New("upload: unsupported content type")

// Store is the interface for image storage backends.
type Store interface {
	// Put stores the image and returns its public URL.
	Put(ctx context.Context, filename, contentType string, size int64, r io.Reader) (url string, err error)
}

// allowedTypes are the image content types either store accepts.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func checkType(contentType string) error {
	if !allowedTypes[strings.ToLower(contentType)] {
		return ErrUnsupportedType
	}
	return nil
}

// objectName builds a collision-free object name keeping the original
// extension so CDNs and browsers infer the type.
func objectName(filename string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b) + strings.ToLower(path.Ext(filename))
}
