package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/model"
)

// SchemasPath is the archrepo endpoint accepting schema documents.
const SchemasPath = "/api/dbschemas"

// OAuthConfig is the client-credentials registration used to authenticate
// against the archrepo.
type OAuthConfig struct {
	// Client is the registration name, reported in logs only.
	Client       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// ArchRepoConfig configures the archrepo sink.
type ArchRepoConfig struct {
	URL     string
	Timeout time.Duration
	OAuth   OAuthConfig
}

// ArchRepo posts documents to the architecture repository.
type ArchRepo struct {
	endpoint string
	client   *http.Client
	oauth    string
	log      *logger.Logger
}

// NewArchRepo builds the sink. Tokens are fetched lazily on the first
// publish and refreshed by the oauth2 transport when they expire.
func NewArchRepo(cfg ArchRepoConfig, log *logger.Logger) (*ArchRepo, error) {
	if cfg.URL == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "archrepo url is required")
	}
	if cfg.OAuth.TokenURL == "" || cfg.OAuth.ClientID == "" {
		return nil, errs.Newf(errs.ErrKindInvalidInput,
			"archrepo oauth client %q needs token_url and client_id", cfg.OAuth.Client)
	}

	endpoint, err := url.JoinPath(cfg.URL, SchemasPath)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid archrepo url", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := &http.Client{Timeout: timeout}

	cc := clientcredentials.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		TokenURL:     cfg.OAuth.TokenURL,
		Scopes:       cfg.OAuth.Scopes,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(tokenCtx)
	client.Timeout = timeout

	if log == nil {
		log = logger.Nop()
	}
	return &ArchRepo{
		endpoint: endpoint,
		client:   client,
		oauth:    cfg.OAuth.Client,
		log:      log.Component("archrepo"),
	}, nil
}

func (a *ArchRepo) Name() string { return "archrepo" }

// Endpoint is the full URL documents are posted to.
func (a *ArchRepo) Endpoint() string { return a.endpoint }

// OAuthClient is the configured registration name.
func (a *ArchRepo) OAuthClient() string { return a.oauth }

func (a *ArchRepo) Publish(ctx context.Context, doc *model.Document) error {
	body, err := doc.Marshal()
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode document", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", RunIDFrom(ctx))

	resp, err := a.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		a.log.DebugWith("document accepted", map[string]any{"status": resp.StatusCode})
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return statusError(resp.StatusCode, strings.TrimSpace(string(detail)))
}

// statusError classifies a non-2xx archrepo response.
func statusError(status int, detail string) *errs.Error {
	msg := fmt.Sprintf("archrepo responded %d %s", status, http.StatusText(status))
	if detail != "" {
		msg += ": " + detail
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return errs.New(errs.ErrKindPermissionDenied, msg)
	case status == http.StatusNotFound:
		return errs.New(errs.ErrKindNotFound, msg)
	case status >= 400 && status < 500:
		return errs.New(errs.ErrKindInvalidInput, msg)
	default:
		return errs.New(errs.ErrKindPublishFailed, msg)
	}
}

func mapTransportError(err error) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "archrepo request timed out", err)
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return errs.Wrap(errs.ErrKindPermissionDenied, "failed to obtain archrepo token", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return errs.Wrap(errs.ErrKindTimeout, "archrepo request timed out", err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, "archrepo unreachable", err)
}
