// Package blob stores receipt files on local disk and hands out
// expiring HMAC-signed URLs for viewing them.
package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrBlobNotFound is returned when a stored object does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrBadSignature is returned when a signed URL fails verification.
var ErrBadSignature = errors.New("invalid or expired signature")

var extByContentType = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// DiskStoreOptions configures a DiskStore.
type DiskStoreOptions struct {
	// Root is the directory receipts are written under.
	Root string
	// SigningKey signs view URLs. Required.
	SigningKey []byte
	// BasePath is the public route prefix for viewing, default "/receipts/view".
	BasePath string
}

// DiskStore implements core.BlobStore against the local filesystem.
type DiskStore struct {
	root     string
	key      []byte
	basePath string
	now      func() time.Time
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(opts DiskStoreOptions) (*DiskStore, error) {
	if opts.Root == "" {
		return nil, errors.New("blob store root is required")
	}
	if len(opts.SigningKey) == 0 {
		return nil, errors.New("blob store signing key is required")
	}
	basePath := opts.BasePath
	if basePath == "" {
		basePath = "/receipts/view"
	}
	if err := os.MkdirAll(opts.Root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &DiskStore{
		root:     opts.Root,
		key:      append([]byte(nil), opts.SigningKey...),
		basePath: basePath,
		now:      time.Now,
	}, nil
}

// Upload writes data under a fresh random key and returns that key.
func (s *DiskStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext, ok := extByContentType[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	key := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.root, key), data, 0o640); err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	return key, nil
}

// Open returns the file contents for a stored key.
func (s *DiskStore) Open(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	clean, err := s.safeKey(key)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("read blob %s: %w", clean, err)
	}
	return data, contentTypeForKey(clean), nil
}

// Delete removes a stored object. Deleting a missing key is not an error.
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := s.safeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", clean, err)
	}
	return nil
}

// SignedURL returns a relative URL valid until now+ttl.
func (s *DiskStore) SignedURL(key string, ttl time.Duration) (string, error) {
	clean, err := s.safeKey(key)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	expires := s.now().Add(ttl).Unix()
	sig := s.sign(clean, expires)

	q := url.Values{}
	q.Set("key", clean)
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	return s.basePath + "?" + q.Encode(), nil
}

// Verify checks the signature and expiry of a signed URL's parameters.
func (s *DiskStore) Verify(key, expiresStr, sig string) error {
	clean, err := s.safeKey(key)
	if err != nil {
		return ErrBadSignature
	}
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if s.now().Unix() > expires {
		return ErrBadSignature
	}
	want := s.sign(clean, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrBadSignature
	}
	return nil
}

func (s *DiskStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// safeKey rejects anything that could escape the root directory.
func (s *DiskStore) safeKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("blob key is required")
	}
	clean := filepath.Base(filepath.Clean(key))
	if clean != key || strings.HasPrefix(clean, ".") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return clean, nil
}

func contentTypeForKey(key string) string {
	switch filepath.Ext(key) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
