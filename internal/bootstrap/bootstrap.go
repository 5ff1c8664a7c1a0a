// Package bootstrap configures the client binding to the remote quote service.
// It runs once at startup, before the quote display is mounted, and turns the
// API section of the configuration into a ready-to-use ports.QuoteSource.
//
// A bad binding never stops the process. The resulting Binding reports itself
// unhealthy and every fetch through it fails with domain.ErrFetchFailed.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jsamuelsen/quotewidget/internal/adapters/clients"
	"github.com/jsamuelsen/quotewidget/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotewidget/internal/domain"
	"github.com/jsamuelsen/quotewidget/internal/platform/config"
	"github.com/jsamuelsen/quotewidget/internal/ports"
)

// HealthCheckName is the name the binding registers under in the health registry.
const HealthCheckName = "quotes-api"

var errUnknownEndpoint = errors.New("no endpoint configured")

// Binding is the configured connection to the quote service.
// It implements ports.QuoteSource and ports.HealthChecker.
type Binding struct {
	name     string
	endpoint string
	region   string

	source  ports.QuoteSource
	problem error
}

// RandomQuote fetches a quote through the binding.
// A misconfigured binding fails without issuing a request.
func (b *Binding) RandomQuote(ctx context.Context) (domain.Quote, error) {
	if b.problem != nil {
		return domain.Quote{}, domain.NewFetchError(b.name, b.problem.Error(), domain.ErrMisconfigured)
	}

	return b.source.RandomQuote(ctx)
}

// Name implements ports.HealthChecker.
func (b *Binding) Name() string {
	return HealthCheckName
}

// Check implements ports.HealthChecker. It reports the configuration state
// only and never contacts the remote service.
func (b *Binding) Check(_ context.Context) error {
	if b.problem != nil {
		return fmt.Errorf("%w: %w", domain.ErrMisconfigured, b.problem)
	}

	return nil
}

// APIName returns the logical endpoint name.
func (b *Binding) APIName() string { return b.name }

// Endpoint returns the resolved base URL, empty when unresolved.
func (b *Binding) Endpoint() string { return b.endpoint }

// Region returns the endpoint region, if configured.
func (b *Binding) Region() string { return b.region }

// Err returns the configuration problem, or nil for a usable binding.
func (b *Binding) Err() error { return b.problem }

type options struct {
	logger    *slog.Logger
	client    config.ClientConfig
	lookupEnv LookupEnvFunc
}

// Option customizes the bootstrapper.
type Option func(*options)

// WithLogger sets the logger used for the binding and its HTTP client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClientConfig sets the HTTP client timeout and transport settings.
func WithClientConfig(cfg config.ClientConfig) Option {
	return func(o *options) { o.client = cfg }
}

// WithLookupEnv replaces os.LookupEnv for reading credentials.
func WithLookupEnv(fn LookupEnvFunc) Option {
	return func(o *options) { o.lookupEnv = fn }
}

// Bootstrapper applies the API configuration exactly once.
type Bootstrapper struct {
	cfg  config.APIConfig
	opts options

	once    sync.Once
	binding *Binding
}

// New creates a bootstrapper. Nothing is resolved until Binding is called.
func New(cfg config.APIConfig, opts ...Option) *Bootstrapper {
	o := options{
		logger:    slog.Default(),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Bootstrapper{cfg: cfg, opts: o}
}

// Binding returns the client binding, configuring it on the first call.
// Later calls return the same binding.
func (b *Bootstrapper) Binding() *Binding {
	b.once.Do(func() {
		b.binding = b.configure()
	})

	return b.binding
}

// Configure is shorthand for New(cfg, opts...).Binding().
func Configure(cfg config.APIConfig, opts ...Option) *Binding {
	return New(cfg, opts...).Binding()
}

func (b *Bootstrapper) configure() *Binding {
	api := b.cfg
	if api.Name == "" {
		api.Name = config.DefaultAPIName
	}

	name := api.Name

	logger := b.opts.logger.With(
		slog.String("component", "bootstrap"),
		slog.String("api", name),
	)

	binding := &Binding{name: name}

	ep, ok := api.Endpoint()
	if !ok {
		return misconfigured(logger, binding, fmt.Errorf("%w: %q", errUnknownEndpoint, name))
	}

	binding.endpoint = ep.Endpoint
	binding.region = ep.Region

	auth, err := authFunc(api.Credentials, b.opts.lookupEnv)
	if err != nil {
		return misconfigured(logger, binding, err)
	}

	client, err := clients.New(&clients.Config{
		BaseURL:     ep.Endpoint,
		ServiceName: name,
		Region:      ep.Region,
		Timeout:     b.opts.client.Timeout,
		Transport:   b.opts.client.Transport,
		AuthFunc:    auth,
		Logger:      b.opts.logger,
	})
	if err != nil {
		return misconfigured(logger, binding, err)
	}

	binding.endpoint = client.BaseURL()
	binding.source = acl.NewQuoteClient(acl.QuoteClientConfig{
		Client: client,
		Path:   api.Path,
		Logger: b.opts.logger,
	})

	logger.Info("client binding configured",
		slog.String("endpoint", binding.endpoint),
		slog.String("region", binding.region),
		slog.String("credentials", credentialSource(api.Credentials)),
	)

	return binding
}

func misconfigured(logger *slog.Logger, binding *Binding, err error) *Binding {
	binding.problem = err

	logger.Warn("client binding misconfigured, quote fetches will fail",
		slog.String("endpoint", binding.endpoint),
		slog.Any("error", err),
	)

	return binding
}

func credentialSource(c config.CredentialsConfig) string {
	if c.Source == "" {
		return config.CredentialSourceNone
	}

	return c.Source
}
