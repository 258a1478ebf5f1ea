// Package publisher reads the database model and hands it to the publish
// sinks, either synchronously or through a single-slot background queue.
package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/model"
	"github.com/koustreak/schemapub/internal/publish"
	"github.com/koustreak/schemapub/internal/reader"
	"github.com/koustreak/schemapub/internal/version"
)

var (
	// ErrPublishBusy is returned by PublishAsync when one publish is running
	// and another is already waiting.
	ErrPublishBusy = errors.New("publisher: a publish is already pending")

	// ErrPublishDisabled is returned when no sink is configured.
	ErrPublishDisabled = errors.New("publisher: publishing is disabled")

	// ErrNotStarted is returned by PublishAsync before Start.
	ErrNotStarted = errors.New("publisher: background worker not started")
)

// Config names what gets published.
type Config struct {
	// Component is the system component name stamped on every document.
	Component string
	// SchemaName is the database schema to read.
	SchemaName string
	// Target and OAuthClient only feed the publish summary log.
	Target      string
	OAuthClient string
}

// Run describes one publish attempt.
type Run struct {
	ID         string    `json:"id"`
	Version    string    `json:"version,omitempty"`
	Tables     int       `json:"tables"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Error      string    `json:"error,omitempty"`
}

// Publisher builds documents from a catalog connector and publishes them.
type Publisher struct {
	cfg      Config
	db       catalog.Connector
	reader   *reader.Reader
	versions *version.Resolver
	sink     publish.Sink
	log      *logger.Logger

	queue chan string
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	last    *Run
}

// New returns a Publisher. A nil sink disables publishing; Build still works.
func New(cfg Config, db catalog.Connector, versions *version.Resolver, sink publish.Sink, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	if versions == nil {
		versions = version.NewResolver(log)
	}
	return &Publisher{
		cfg:      cfg,
		db:       db,
		reader:   reader.New(log),
		versions: versions,
		sink:     sink,
		log:      log.Component("publisher"),
		queue:    make(chan string, 1),
	}
}

// Enabled reports whether a sink is configured.
func (p *Publisher) Enabled() bool { return p.sink != nil }

// Build reads the schema and wraps it into a publish document.
func (p *Publisher) Build(ctx context.Context) (*model.Document, error) {
	v := p.versions.Resolve(ctx)
	schema, err := p.reader.ReadSchema(ctx, p.db, p.cfg.SchemaName, v)
	if err != nil {
		return nil, err
	}
	return model.NewDocument(p.cfg.Component, schema), nil
}

// Publish builds and publishes one document synchronously.
func (p *Publisher) Publish(ctx context.Context) (Run, error) {
	if !p.Enabled() {
		return Run{}, ErrPublishDisabled
	}
	return p.run(ctx, publish.NewRunID())
}

func (p *Publisher) run(ctx context.Context, runID string) (run Run, err error) {
	ctx = publish.WithRunID(ctx, runID)
	run = Run{ID: runID, StartedAt: time.Now().UTC()}
	log := p.log.With().Str("run_id", runID).Logger()

	defer func() {
		run.FinishedAt = time.Now().UTC()
		if err != nil {
			run.Error = err.Error()
			log.ErrorWith("schema publish failed", err, map[string]any{"system_component": p.cfg.Component})
		}
		p.mu.Lock()
		last := run
		p.last = &last
		p.mu.Unlock()
	}()

	doc, err := p.Build(ctx)
	if err != nil {
		return run, err
	}
	run.Version = doc.Schema.Version
	run.Tables = doc.TableCount()
	log = log.With().Str("version", run.Version).Int("tables", run.Tables).Logger()

	log.InfoWith("publishing database schema", map[string]any{
		"system_component": p.cfg.Component,
		"target":           p.cfg.Target,
		"oauth_client":     p.cfg.OAuthClient,
		"sinks":            p.sinkNames(),
	})

	if err := p.sink.Publish(ctx, doc); err != nil {
		return run, err
	}

	log.InfoWith("database schema published", map[string]any{
		"system_component": p.cfg.Component,
		"duration":         time.Since(run.StartedAt).String(),
	})
	return run, nil
}

// sinkNames lists the configured sinks, expanding a fan-out.
func (p *Publisher) sinkNames() []string {
	if m, ok := p.sink.(publish.Multi); ok {
		return m.Names()
	}
	return []string{p.sink.Name()}
}

// Start launches the background worker. It stops when ctx is done; Wait
// blocks until it has.
func (p *Publisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case runID := <-p.queue:
				// Failures are logged and recorded by run.
				_, _ = p.run(ctx, runID)
			}
		}
	}()
}

// Wait blocks until the background worker has exited.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// PublishAsync enqueues a publish and returns its run id immediately.
// At most one publish runs and one waits; a further request gets
// ErrPublishBusy.
func (p *Publisher) PublishAsync() (string, error) {
	if !p.Enabled() {
		return "", ErrPublishDisabled
	}
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return "", ErrNotStarted
	}

	runID := publish.NewRunID()
	select {
	case p.queue <- runID:
		p.log.DebugWith("publish queued", map[string]any{"run_id": runID})
		return runID, nil
	default:
		p.log.Warn("publish rejected: queue full")
		return "", ErrPublishBusy
	}
}

// LastRun returns the most recently finished run, if any.
func (p *Publisher) LastRun() (Run, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Run{}, false
	}
	return *p.last, true
}
