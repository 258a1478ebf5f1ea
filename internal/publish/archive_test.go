package publish

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/filestore"
)

// memStore is an in-memory filestore.Store.
type memStore struct {
	buckets map[string]map[string][]byte
	ensures int
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{buckets: map[string]map[string][]byte{}}
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) EnsureBucket(_ context.Context, bucket string) error {
	m.ensures++
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = map[string][]byte{}
	}
	return nil
}

func (m *memStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such bucket")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "size %d, read %d", size, len(data))
	}
	objects[key] = data
	return &filestore.ObjectInfo{Key: key, Size: size, ContentType: contentType, LastModified: time.Now()}, nil
}

func (m *memStore) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	out := []filestore.ObjectInfo{}
	for key, data := range m.buckets[bucket] {
		if strings.HasPrefix(key, opts.Prefix) {
			out = append(out, filestore.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func TestArchive_Publish(t *testing.T) {
	store := newMemStore()
	sink, err := NewArchive(store, "schemas", "archrepo", nil)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-7")
	require.NoError(t, sink.Publish(ctx, testDocument()))
	require.NoError(t, sink.Publish(WithRunID(context.Background(), "run-8"), testDocument()))

	assert.Equal(t, 1, store.ensures, "bucket is ensured once")

	data, ok := store.buckets["schemas"]["archrepo/orders-service/1.4.0/run-7.json"]
	require.True(t, ok)
	assert.JSONEq(t, mustMarshal(t, testDocument()), string(data))

	history, err := sink.History(context.Background(), "orders-service", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestArchive_KeyWithoutVersion(t *testing.T) {
	sink, err := NewArchive(newMemStore(), "schemas", "", nil)
	require.NoError(t, err)

	doc := testDocument()
	doc.Schema.Version = ""
	assert.Equal(t, "orders-service/na/r.json", sink.Key(doc, "r"))
}

func TestArchive_PutFailure(t *testing.T) {
	store := newMemStore()
	store.putErr = errs.New(errs.ErrKindPermissionDenied, "denied")
	sink, err := NewArchive(store, "schemas", "", nil)
	require.NoError(t, err)

	err = sink.Publish(context.Background(), testDocument())
	assert.True(t, errs.IsPermissionDenied(err))
}

func TestNewArchive_RequiresBucket(t *testing.T) {
	_, err := NewArchive(newMemStore(), "", "", nil)
	assert.True(t, errs.IsInvalidInput(err))
}
