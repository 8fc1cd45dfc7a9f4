package blob

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(DiskStoreOptions{
		Root:       t.TempDir(),
		SigningKey: []byte("disk-test-key"),
	})
	require.NoError(t, err)
	return store
}

func TestNewDiskStoreValidatesOptions(t *testing.T) {
	_, err := NewDiskStore(DiskStoreOptions{SigningKey: []byte("k")})
	assert.Error(t, err)

	_, err = NewDiskStore(DiskStoreOptions{Root: t.TempDir()})
	assert.Error(t, err)
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Upload(ctx, []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".png"))

	data, contentType, err := store.Open(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", contentType)

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	// Deleting a missing key is fine.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestDiskStoreRejectsUnknownContentType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Upload(context.Background(), []byte("x"), "text/html")
	assert.Error(t, err)
}

func TestDiskStoreSignedURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Upload(ctx, []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	signed, err := store.SignedURL(key, time.Hour)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/receipts/view", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, key, q.Get("key"))
	require.NoError(t, store.Verify(q.Get("key"), q.Get("expires"), q.Get("sig")))

	// Tampering with any parameter breaks verification.
	assert.ErrorIs(t, store.Verify("other.pdf", q.Get("expires"), q.Get("sig")), ErrBadSignature)
	assert.ErrorIs(t, store.Verify(q.Get("key"), "9999999999", q.Get("sig")), ErrBadSignature)
	assert.ErrorIs(t, store.Verify(q.Get("key"), q.Get("expires"), "bogus"), ErrBadSignature)
}

func TestDiskStoreExpiredSignature(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Upload(ctx, []byte("jpg"), "image/jpeg")
	require.NoError(t, err)

	signed, err := store.SignedURL(key, time.Minute)
	require.NoError(t, err)
	q, err := url.ParseQuery(strings.SplitN(signed, "?", 2)[1])
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, store.Verify(q.Get("key"), q.Get("expires"), q.Get("sig")), ErrBadSignature)
}

func TestDiskStoreSafeKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.png", "a/b.png", ".hidden"} {
		_, _, err := store.Open(ctx, key)
		assert.Error(t, err, "key %q must be rejected", key)
	}
}
