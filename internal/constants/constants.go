package constants

import "time"

// Configuration locations.
const (
	// DefaultConfigDir is the directory under $HOME holding CLI configuration.
	DefaultConfigDir = ".restwrap"

	// DefaultConfigName is the configuration file name without extension.
	DefaultConfigName = "config"

	// DefaultConfigType is the configuration file format.
	DefaultConfigType = "yml"

	// EnvPrefix prefixes environment variables read by the CLI.
	EnvPrefix = "RESTWRAP"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as token requests.
	ShortHTTPTimeout = 10 * time.Second

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "restwrap/1.0"
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries. Requests are
	// not retried unless configured.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Cache sizing.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024

	// DefaultNATSBucket is the key-value bucket used when none is configured.
	DefaultNATSBucket = "restwrap-cache"

	// NATSClientName identifies cache connections on the NATS server.
	NATSClientName = "restwrap"
)

// Output formats.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Command line parsing.
const (
	// KeyValueSplitParts is the number of parts when splitting key=value strings.
	KeyValueSplitParts = 2

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"
)
