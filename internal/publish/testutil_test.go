package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/koustreak/schemapub/internal/model"
)

func testDocument() *model.Document {
	schema := model.NewSchema("data", "1.4.0", []model.Table{
		{
			Name:        "users",
			Columns:     []model.Column{{Name: "id", Type: "int8"}},
			PrimaryKey:  model.NewPrimaryKey("users_pkey", []string{"id"}),
			ForeignKeys: []model.ForeignKey{},
		},
	})
	return model.NewDocument("orders-service", schema)
}

// recordingSink remembers what it was asked to publish.
type recordingSink struct {
	name  string
	err   error
	docs  []*model.Document
	runID []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, doc *model.Document) error {
	s.docs = append(s.docs, doc)
	s.runID = append(s.runID, RunIDFrom(ctx))
	return s.err
}

var errSink = errors.New("sink down")

func mustMarshal(t testing.TB, doc *model.Document) string {
	t.Helper()
	b, err := doc.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
