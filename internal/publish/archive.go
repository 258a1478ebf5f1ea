package publish

import (
	"bytes"
	"context"
	"path"
	"sync/atomic"

	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/filestore"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/model"
)

const documentContentType = "application/json"

// Archive stores every published document as an object keyed
// {prefix}/{component}/{version}/{runID}.json.
type Archive struct {
	store   filestore.Store
	bucket  string
	prefix  string
	ensured atomic.Bool
	log     *logger.Logger
}

// NewArchive returns a sink writing into bucket under prefix. The bucket is
// created on the first publish if it does not exist.
func NewArchive(store filestore.Store, bucket, prefix string, log *logger.Logger) (*Archive, error) {
	if bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "archive bucket is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Archive{store: store, bucket: bucket, prefix: prefix, log: log.Component("archive")}, nil
}

func (a *Archive) Name() string { return "archive" }

// Key returns the object key for doc in the run identified by runID.
func (a *Archive) Key(doc *model.Document, runID string) string {
	version := "na"
	if doc.Schema != nil && doc.Schema.Version != "" {
		version = doc.Schema.Version
	}
	return path.Join(a.prefix, doc.SystemComponentName, version, runID+".json")
}

func (a *Archive) Publish(ctx context.Context, doc *model.Document) error {
	if !a.ensured.Load() {
		if err := a.store.EnsureBucket(ctx, a.bucket); err != nil {
			return err
		}
		a.ensured.Store(true)
	}

	body, err := doc.Marshal()
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode document", err)
	}

	key := a.Key(doc, RunIDFrom(ctx))
	info, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), documentContentType)
	if err != nil {
		return err
	}

	a.log.DebugWith("document archived", map[string]any{
		"bucket": a.bucket,
		"key":    info.Key,
		"etag":   info.ETag,
	})
	return nil
}

// History lists archived documents of component, newest last as the store
// orders keys.
func (a *Archive) History(ctx context.Context, component string, limit int) ([]filestore.ObjectInfo, error) {
	prefix := path.Join(a.prefix, component) + "/"
	return a.store.ListObjects(ctx, a.bucket, filestore.ListOptions{Prefix: prefix, Limit: limit})
}
