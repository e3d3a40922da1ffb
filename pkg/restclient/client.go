package restclient

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fivetwenty-io/restwrap/internal/auth"
	"github.com/fivetwenty-io/restwrap/internal/constants"
	resthttp "github.com/fivetwenty-io/restwrap/internal/http"
	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired    = errors.New("config is required")
	ErrResourcesRequired = errors.New("resources or resources file is required")
	ErrTokenURLRequired  = errors.New("token URL is required for OAuth2 credentials")
)

// Config describes how to build a client.
type Config struct {
	// Resources is used as is when set; otherwise ResourcesFile is loaded.
	Resources     *restwrap.Registry `mapstructure:"-"              yaml:"-"`
	ResourcesFile string             `mapstructure:"resources_file" yaml:"resources_file"`

	// Authentication options (provide one). AccessToken is sent as is;
	// the others go through the OAuth2 token endpoint at TokenURL.
	AccessToken  string   `mapstructure:"access_token"  yaml:"access_token"`
	TokenURL     string   `mapstructure:"token_url"     yaml:"token_url"`
	ClientID     string   `mapstructure:"client_id"     yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"`
	Username     string   `mapstructure:"username"      yaml:"username"`
	Password     string   `mapstructure:"password"      yaml:"password"`
	RefreshToken string   `mapstructure:"refresh_token" yaml:"refresh_token"`
	Scopes       []string `mapstructure:"scopes"        yaml:"scopes"`

	// HTTPTimeout bounds each attempt. Zero uses the default.
	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	// RetryMax retries connection errors, 429 and 5xx answers. Zero disables retries.
	RetryMax     int           `mapstructure:"retry_max"      yaml:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min" yaml:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max" yaml:"retry_wait_max"`

	Debug     bool            `mapstructure:"debug"      yaml:"debug"`
	Logger    restwrap.Logger `mapstructure:"-"          yaml:"-"`
	UserAgent string          `mapstructure:"user_agent" yaml:"user_agent"`

	// DefaultHeaders are sent with every request unless overridden per call.
	DefaultHeaders map[string]string `mapstructure:"headers" yaml:"headers"`
	// RequestIDHeader, when set, names a header filled with a fresh UUID per request.
	RequestIDHeader string `mapstructure:"request_id_header" yaml:"request_id_header"`

	// ItemsPath and NextPath override the default paging rule.
	ItemsPath string `mapstructure:"items_path" yaml:"items_path"`
	NextPath  string `mapstructure:"next_path"  yaml:"next_path"`

	// Cache enables GET response caching when set.
	Cache *restwrap.CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Transport replaces the HTTP transport, e.g. in tests. Authentication is
	// then applied through a request interceptor.
	Transport restwrap.Transport `mapstructure:"-" yaml:"-"`
}

// Client is a restwrap.Client that owns the resources it was built with.
type Client struct {
	*restwrap.Client

	tokenManager auth.TokenManager
	closers      []func()
}

// TokenManager returns the token manager in use, or nil for anonymous clients.
func (c *Client) TokenManager() auth.TokenManager {
	return c.tokenManager
}

// Close releases cache connections.
func (c *Client) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}

	c.closers = nil
}

// New builds a client from config.
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	registry, err := resolveRegistry(config)
	if err != nil {
		return nil, err
	}

	tokenManager, err := createTokenManager(config)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = restwrap.NoopLogger()
	}

	result := &Client{tokenManager: tokenManager}

	var opts []restwrap.Option

	transport := config.Transport
	if transport == nil {
		transport = resthttp.NewClient(tokenManager, createHTTPClientOptions(config, logger)...)
	} else if tokenManager != nil {
		opts = append(opts, restwrap.WithRequestInterceptor(restwrap.AuthenticationInterceptor(tokenManager)))
	}

	if config.Cache != nil && config.Cache.Type != restwrap.CacheTypeNone {
		cache, err := restwrap.NewCacheFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}

		if closer, ok := cache.(interface{ Close() }); ok {
			result.closers = append(result.closers, closer.Close)
		}

		caching := restwrap.NewCachingTransport(transport, cache, config.Cache.Options)
		if tokenManager != nil {
			caching.WithCredentials(tokenManager)
		}

		transport = caching
	}

	opts = append(opts, restwrap.WithLogger(logger))

	for key, value := range config.DefaultHeaders {
		opts = append(opts, restwrap.WithDefaultHeader(key, value))
	}

	if config.RequestIDHeader != "" {
		opts = append(opts, restwrap.WithRequestInterceptor(restwrap.RequestIDInterceptor(config.RequestIDHeader)))
	}

	if config.ItemsPath != "" || config.NextPath != "" {
		opts = append(opts, restwrap.WithPagingRule(pagingRule(config)))
	}

	if config.Debug && config.Transport != nil {
		opts = append(opts,
			restwrap.WithRequestInterceptor(restwrap.LoggingInterceptor(logger)),
			restwrap.WithResponseInterceptor(restwrap.LoggingResponseInterceptor(logger)),
		)
	}

	client, err := restwrap.NewClient(registry, transport, opts...)
	if err != nil {
		result.Close()

		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	result.Client = client

	return result, nil
}

// LoadResources reads a YAML or JSON resource mapping file into a registry.
func LoadResources(path string) (*restwrap.Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the caller's configuration
	if err != nil {
		return nil, fmt.Errorf("reading resources file: %w", err)
	}

	descriptors, err := restwrap.ParseResourceMapping(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return restwrap.NewRegistry(descriptors...)
}

func resolveRegistry(config *Config) (*restwrap.Registry, error) {
	if config.Resources != nil {
		return config.Resources, nil
	}

	if config.ResourcesFile == "" {
		return nil, ErrResourcesRequired
	}

	return LoadResources(config.ResourcesFile)
}

func pagingRule(config *Config) restwrap.PagingRule {
	itemsPath, nextPath := config.ItemsPath, config.NextPath
	if itemsPath == "" {
		itemsPath = restwrap.DefaultItemsPath
	}

	if nextPath == "" {
		nextPath = restwrap.DefaultNextPath
	}

	return restwrap.PathPagingRule(itemsPath, nextPath)
}

// createTokenManager picks the manager matching the configured credentials.
func createTokenManager(config *Config) (auth.TokenManager, error) {
	hasGrant := config.ClientID != "" || config.Username != "" || config.RefreshToken != ""

	if !hasGrant {
		if config.AccessToken != "" {
			return auth.NewStaticTokenManager(config.AccessToken), nil
		}

		return nil, nil //nolint:nilnil // no authentication
	}

	if config.TokenURL == "" {
		return nil, ErrTokenURLRequired
	}

	return auth.NewOAuth2TokenManager(&auth.OAuth2Config{
		TokenURL:     config.TokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Username:     config.Username,
		Password:     config.Password,
		RefreshToken: config.RefreshToken,
		AccessToken:  config.AccessToken,
		Scopes:       config.Scopes,
	}), nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *Config, logger restwrap.Logger) []resthttp.Option {
	httpOpts := []resthttp.Option{resthttp.WithLogger(logger)}

	if config.Debug {
		httpOpts = append(httpOpts, resthttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, resthttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, resthttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, resthttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}
