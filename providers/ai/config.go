package ai

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpproxy"

	"github.com/modelmux/modelmux/internal/utils"
)

// DefaultTimeout bounds a single provider call end to end, including
// streaming reads. It is deliberately a multi-hour ceiling: long generations
// and slow local models routinely run for minutes, so the timeout only
// guards abandoned connections. Callers wanting request-level deadlines use
// context.WithTimeout.
const DefaultTimeout = 7200 * time.Second

// ClientCertificate points at a PEM certificate/key pair presented to
// providers that require mutual TLS.
type ClientCertificate struct {
	CertPath string
	KeyPath  string
}

// RequestOptions tunes the HTTP transport used for provider calls.
type RequestOptions struct {
	// Timeout bounds the entire call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Proxy is the URL of an HTTP(S) proxy for outbound calls. Empty means
	// a direct connection.
	Proxy string

	// NoProxy lists hosts that bypass the proxy (same matching rules as the
	// NO_PROXY environment convention).
	NoProxy []string

	// Headers are extra headers set on every request, applied after the
	// provider's own headers so they can override.
	Headers map[string]string

	// VerifySSL controls server certificate verification. Nil means verify.
	VerifySSL *bool

	// CABundlePath points at a PEM bundle trusted in addition to the system
	// roots.
	CABundlePath string

	// ClientCertificate is presented when the provider endpoint requires
	// mutual TLS.
	ClientCertificate *ClientCertificate
}

// ProviderConfig carries everything a client constructor needs. Components
// never read the environment themselves; callers resolve credentials and
// endpoints however they like and pass the results here.
type ProviderConfig struct {
	// APIKey authenticates requests. Providers that need no credential
	// (local ollama) ignore it.
	APIKey string

	// APIBase overrides the provider's default endpoint base. It is
	// normalized to end with "/" so endpoint paths join correctly even when
	// the base carries a path prefix (gateways, region-scoped deployments).
	APIBase string

	// CachingStrategy names the prompt-caching strategy for providers that
	// support one: "system-and-tools" (default), "conversation", "none".
	// Unknown names fall back to the default. Providers without prompt
	// caching ignore it.
	CachingStrategy string

	// RequestOptions tunes the transport.
	RequestOptions RequestOptions

	// Extras carries provider-specific settings that have no canonical
	// field (region, deployment, engine, api version).
	Extras map[string]string

	// Logger receives debug and warning events from the adapter. Nil
	// disables logging.
	Logger *zerolog.Logger
}

// WithDefaults returns a copy of the config with the provider's default base
// applied when APIBase is empty, the base normalized, and the default
// timeout filled in. Adapters call this once at construction.
func (c ProviderConfig) WithDefaults(defaultAPIBase string) ProviderConfig {
	if c.APIBase == "" {
		c.APIBase = defaultAPIBase
	}
	c.APIBase = NormalizeAPIBase(c.APIBase)
	if c.RequestOptions.Timeout == 0 {
		c.RequestOptions.Timeout = DefaultTimeout
	}
	return c
}

// NormalizeAPIBase ensures base ends with exactly one trailing slash, so
// relative endpoint paths append cleanly.
func NormalizeAPIBase(base string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/"
}

// Endpoint joins a relative endpoint path onto the normalized base. The
// base's own path prefix is preserved.
func (c ProviderConfig) Endpoint(path string) string {
	return c.APIBase + strings.TrimPrefix(path, "/")
}

// LoggerOrNop returns the configured logger, or a disabled one.
func (c ProviderConfig) LoggerOrNop() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}

// Extra returns the named provider-specific setting, or "".
func (c ProviderConfig) Extra(key string) string {
	return c.Extras[key]
}

// HeaderOptions returns the configured extra headers in deterministic order,
// ready to pass to the HTTP helpers.
func (o RequestOptions) HeaderOptions() []utils.HeaderOption {
	if len(o.Headers) == 0 {
		return nil
	}
	options := make([]utils.HeaderOption, 0, len(o.Headers))
	for _, key := range slices.Sorted(maps.Keys(o.Headers)) {
		options = append(options, utils.HeaderOption{Key: key, Value: o.Headers[key]})
	}
	return options
}

// HTTPClient builds the http.Client described by the options. TLS settings
// and proxy rules go on the transport; the timeout goes on the client so it
// covers the whole exchange.
func (o RequestOptions) HTTPClient() (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	tlsConfig := transport.TLSClientConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	} else {
		tlsConfig = tlsConfig.Clone()
	}
	tlsTouched := false

	if o.VerifySSL != nil && !*o.VerifySSL {
		tlsConfig.InsecureSkipVerify = true
		tlsTouched = true
	}

	if o.CABundlePath != "" {
		pem, err := os.ReadFile(o.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no usable certificates", o.CABundlePath)
		}
		tlsConfig.RootCAs = pool
		tlsTouched = true
	}

	if o.ClientCertificate != nil {
		certificate, err := tls.LoadX509KeyPair(o.ClientCertificate.CertPath, o.ClientCertificate.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
		tlsTouched = true
	}

	if tlsTouched {
		transport.TLSClientConfig = tlsConfig
	}

	if o.Proxy != "" || len(o.NoProxy) > 0 {
		proxyConfig := &httpproxy.Config{
			HTTPProxy:  o.Proxy,
			HTTPSProxy: o.Proxy,
			NoProxy:    strings.Join(o.NoProxy, ","),
		}
		proxyFunc := proxyConfig.ProxyFunc()
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		}
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
