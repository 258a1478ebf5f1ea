// Package publish delivers schema documents to their destinations.
//
// Every destination implements Sink. The archrepo sink is the registry of
// record; the archive and kafka sinks keep copies for history and for
// downstream consumers. Multi fans one document out to several sinks.
package publish

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/koustreak/schemapub/internal/model"
)

// Sink transmits one document. Implementations must be safe for use by one
// publish at a time and must not retry.
type Sink interface {
	Name() string
	Publish(ctx context.Context, doc *model.Document) error
}

// Multi publishes to each sink in order and stops at the first failure.
type Multi []Sink

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, doc *model.Document) error {
	for _, s := range m {
		if err := s.Publish(ctx, doc); err != nil {
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Names lists the sink names in publish order.
func (m Multi) Names() []string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return names
}

type runIDKey struct{}

// WithRunID tags ctx with the id of one publish run. Sinks stamp it on what
// they send so a document can be traced across destinations.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// NewRunID returns a fresh random run id.
func NewRunID() string {
	return uuid.NewString()
}

// RunIDFrom returns the run id carried by ctx, or a fresh one.
func RunIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return NewRunID()
}
