// Package blob handles file uploads to an object store.
//
// Object keys are content-derived: a hash of the original filename plus
// a unique monotonic salt, so two uploads of the same name never
// collide and a key never reveals the original name. Only a fixed
// allow-list of MIME types is accepted.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/snipmart/snipmart/internal/apperror"
)

// allowedTypes maps each accepted MIME type to its valid file
// extensions. The first extension is used when the uploaded filename
// carries none of them.
var allowedTypes = map[string][]string{
	"image/png":       {".png"},
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/webp":      {".webp"},
	"image/gif":       {".gif"},
	"text/plain":      {".txt"},
	"application/zip": {".zip"},
}

// Store is the blob storage collaborator.
type Store interface {
	// Put writes the object under key and returns a URL it can be served
	// from.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ObjectKey derives the storage key for an uploaded file.
//
// Shape: <sha256(filename) first 16 hex chars>-<xid><ext>. The xid salt
// is unique and roughly monotonic, so repeated uploads of one filename
// sort together yet never overwrite each other. The extension is taken
// from the filename when it is valid for the MIME type, otherwise the
// type's canonical extension is used.
func ObjectKey(filename, contentType string) (string, error) {
	exts, ok := allowedTypes[normalizeContentType(contentType)]
	if !ok {
		return "", apperror.ValidationFailed("contentType",
			"unsupported content type "+contentType)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	valid := false
	for _, candidate := range exts {
		if ext == candidate {
			valid = true
			break
		}
	}
	if !valid {
		ext = exts[0]
	}

	sum := sha256.Sum256([]byte(filename))
	return hex.EncodeToString(sum[:])[:16] + "-" + xid.New().String() + ext, nil
}

// Allowed reports whether the MIME type is on the upload allow-list.
func Allowed(contentType string) bool {
	_, ok := allowedTypes[normalizeContentType(contentType)]
	return ok
}

// normalizeContentType strips parameters like "; charset=utf-8" and
// lowercases the media type.
func normalizeContentType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
