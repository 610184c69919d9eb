package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/golovatskygroup/hookbase-mcp/internal/hookbase"
)

// APIKeyPrefix is the literal every Hookbase API key starts with.
const APIKeyPrefix = "whr_"

// IdentityPath is the identity lookup used for organization auto-detection.
const IdentityPath = "/api/auth/me"

// Config is the resolved, immutable configuration.
type Config struct {
	APIURL         string
	APIKey         string
	OrganizationID string
}

// OrgPath prefixes suffix with the organization scope.
func (c Config) OrgPath(suffix string) string {
	return "/api/organizations/" + url.PathEscape(c.OrganizationID) + suffix
}

// Kind classifies a resolution failure.
type Kind string

const (
	KindMissingCredential       Kind = "missing_credential"
	KindInvalidCredentialFormat Kind = "invalid_credential_format"
	KindAuthenticationFailed    Kind = "authentication_failed"
	KindNoOrganization          Kind = "no_organization"
	KindAmbiguousOrganization   Kind = "ambiguous_organization"
	KindNetworkError            Kind = "network_error"
)

// ResolveError is a diagnosable configuration failure.
type ResolveError struct {
	Kind          Kind
	Message       string
	Organizations []hookbase.Organization // candidates, for KindAmbiguousOrganization
}

func (e *ResolveError) Error() string { return e.Message }

// IsKind reports whether err is a *ResolveError of kind k.
func IsKind(err error, k Kind) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Kind == k
}

// ClientFactory builds the dispatcher used for identity lookup and, after
// resolution, for every tool call.
type ClientFactory func(baseURL, apiKey string) *hookbase.Client

// Resolver establishes the process configuration. A successful resolution
// is cached for the life of the Resolver; failures are not.
type Resolver struct {
	settings  Settings
	newClient ClientFactory
	logger    *slog.Logger

	mu       sync.Mutex
	resolved *Config
}

func NewResolver(s Settings, newClient ClientFactory, logger *slog.Logger) *Resolver {
	if newClient == nil {
		newClient = func(baseURL, apiKey string) *hookbase.Client { return hookbase.New(baseURL, apiKey) }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{settings: s, newClient: newClient, logger: logger}
}

// Resolve returns the cached configuration, or validates settings and
// detects the organization. Errors are always *ResolveError.
func (r *Resolver) Resolve(ctx context.Context) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return *r.resolved, nil
	}

	cfg, err := r.resolve(ctx)
	if err != nil {
		return Config{}, err
	}
	r.resolved = &cfg
	r.logger.Info("hookbase configuration resolved", "api_url", cfg.APIURL, "organization_id", cfg.OrganizationID)
	return cfg, nil
}

// Resolved reports whether Resolve has succeeded.
func (r *Resolver) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved != nil
}

// Current returns the resolved configuration. It panics if Resolve has not
// succeeded yet.
func (r *Resolver) Current() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved == nil {
		panic("config: Current called before configuration was resolved")
	}
	return *r.resolved
}

// Client returns a dispatcher for cfg built by the resolver's factory.
func (r *Resolver) Client(cfg Config) *hookbase.Client {
	return r.newClient(cfg.APIURL, cfg.APIKey)
}

func (r *Resolver) resolve(ctx context.Context) (Config, error) {
	key := strings.TrimSpace(r.settings.APIKey)
	if key == "" {
		return Config{}, &ResolveError{
			Kind:    KindMissingCredential,
			Message: fmt.Sprintf("%s is not set. Create an API key in the Hookbase dashboard and export it as %s.", EnvAPIKey, EnvAPIKey),
		}
	}
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return Config{}, &ResolveError{
			Kind:    KindInvalidCredentialFormat,
			Message: fmt.Sprintf("%s has an invalid format: Hookbase API keys start with %q.", EnvAPIKey, APIKeyPrefix),
		}
	}

	cfg := Config{APIURL: r.settings.APIURL, APIKey: key}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = hookbase.DefaultBaseURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if org := strings.TrimSpace(r.settings.OrganizationID); org != "" {
		cfg.OrganizationID = org
		return cfg, nil
	}

	resp := r.newClient(cfg.APIURL, key).Dispatch(ctx, http.MethodGet, IdentityPath, nil)
	if resp.Status == 0 && !resp.OK() {
		return Config{}, &ResolveError{
			Kind:    KindNetworkError,
			Message: fmt.Sprintf("Could not reach Hookbase at %s: %s", cfg.APIURL, resp.Error),
		}
	}
	if !resp.OK() {
		return Config{}, &ResolveError{
			Kind:    KindAuthenticationFailed,
			Message: fmt.Sprintf("Hookbase rejected %s (HTTP %d): %s", EnvAPIKey, resp.Status, authMessage(resp.Error)),
		}
	}

	var me hookbase.Identity
	if err := json.Unmarshal(resp.Data, &me); err != nil {
		return Config{}, &ResolveError{
			Kind:    KindNetworkError,
			Message: fmt.Sprintf("Unexpected identity response from %s: %v", cfg.APIURL, err),
		}
	}

	switch len(me.Organizations) {
	case 0:
		return Config{}, &ResolveError{
			Kind:    KindNoOrganization,
			Message: "This API key does not belong to any Hookbase organization. Create or join an organization first.",
		}
	case 1:
		cfg.OrganizationID = me.Organizations[0].ID
		return cfg, nil
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "This API key has access to %d organizations. Set %s to one of:", len(me.Organizations), EnvOrgID)
		for _, o := range me.Organizations {
			fmt.Fprintf(&sb, "\n  - %s (%s)", o.Name, o.ID)
		}
		return Config{}, &ResolveError{
			Kind:          KindAmbiguousOrganization,
			Message:       sb.String(),
			Organizations: me.Organizations,
		}
	}
}

// authMessage keeps the server's reason unless the dispatcher had to fall back.
func authMessage(msg string) string {
	if msg == "" || msg == "Request failed" {
		return "Authentication failed"
	}
	return msg
}
