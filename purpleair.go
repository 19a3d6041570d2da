// Package purpleair is a client for the PurpleAir V1 air-quality sensor API
// (https://api.purpleair.com). It authenticates with read and write API
// keys, optionally verifying them against the API at construction, and
// caches read responses for a configurable TTL to keep redundant calls off
// the network.
package purpleair

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openaer/purpleair/internal/requestcache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultCacheTTL is how long read responses are served from cache.
	DefaultCacheTTL = 60 * time.Second

	// DefaultCacheMaxEntries bounds the number of cached responses.
	DefaultCacheMaxEntries = 256
)

// Client talks to the PurpleAir API on behalf of one read key and an
// optional write key. A Client owns a single HTTP session and a single
// response cache shared by all calls, and is safe for concurrent use.
type Client struct {
	readKey  string
	writeKey string

	baseURL    string
	httpClient *http.Client
	cache      *requestcache.Cache[map[string]any]
	logger     zerolog.Logger
	now        func() time.Time
}

type clientConfig struct {
	writeKey   string
	verify     bool
	ttl        time.Duration
	maxEntries int
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures a Client during construction.
type Option func(*clientConfig)

// WithWriteKey supplies the write key, enabling mutating calls.
func WithWriteKey(key string) Option {
	return func(c *clientConfig) { c.writeKey = key }
}

// WithVerification controls construction-time key verification. It is on by
// default: each configured key is checked against the keys endpoint and
// construction fails if a key's reported type does not match its role.
func WithVerification(verify bool) Option {
	return func(c *clientConfig) { c.verify = verify }
}

// WithCacheTTL sets how long read responses are served from cache. The TTL
// is fixed for the lifetime of the Client.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) { c.ttl = ttl }
}

// WithCacheMaxEntries bounds the response cache. The least-recently-used
// entry is evicted when the cache is full.
func WithCacheMaxEntries(n int) Option {
	return func(c *clientConfig) { c.maxEntries = n }
}

// WithBaseURL overrides the API origin. For testing use.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) { c.baseURL = baseURL }
}

// WithHTTPClient supplies the HTTP client used for all requests, for callers
// that need custom transport configuration or instrumentation.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithLogger sets the logger used for request diagnostics. Logging is
// diagnostic only and never changes behaviour.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// New creates a Client for the given read key. Unless disabled via
// WithVerification(false), the configured keys are verified against the API
// before the Client is returned: the read key must report type READ and the
// write key (when supplied) type WRITE, otherwise New fails with an
// *InvalidKeyError.
func New(ctx context.Context, readKey string, opts ...Option) (*Client, error) {
	if readKey == "" {
		return nil, fmt.Errorf("read key is required: %w", ErrMissingAPIKey)
	}

	cfg := &clientConfig{
		verify:     true,
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheMaxEntries,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		logger:     log.Logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if !strings.HasSuffix(cfg.baseURL, "/") {
		cfg.baseURL += "/"
	}

	c := &Client{
		readKey:    readKey,
		writeKey:   cfg.writeKey,
		baseURL:    cfg.baseURL,
		httpClient: cfg.httpClient,
		cache:      requestcache.New[map[string]any](cfg.ttl, cfg.maxEntries),
		logger:     cfg.logger,
		now:        cfg.now,
	}

	if cfg.verify {
		if err := c.verifyKey(ctx, c.readKey, KeyRoleRead); err != nil {
			return nil, err
		}
		if c.writeKey != "" {
			if err := c.verifyKey(ctx, c.writeKey, KeyRoleWrite); err != nil {
				return nil, err
			}
		}
	} else {
		c.logger.Debug().Msg("skipping api key verification")
	}

	return c, nil
}

func (c *Client) verifyKey(ctx context.Context, key string, role KeyRole) error {
	c.logger.Debug().Str("role", string(role)).Msg("verifying api key")

	info, err := c.CheckKey(ctx, key)
	if err != nil {
		return fmt.Errorf("verifying %s key: %w", role, err)
	}

	keyType, _ := info["api_key_type"].(string)
	if keyType != string(role) {
		return &InvalidKeyError{Role: role, KeyType: keyType}
	}

	return nil
}

// CheckKey calls the keys endpoint for the given key and returns the API's
// metadata for it, including its api_key_type.
func (c *Client) CheckKey(ctx context.Context, apiKey string) (map[string]any, error) {
	// The key travels in the header, not the query; it still distinguishes
	// the call, so it forms part of the cache key.
	keyArgs := url.Values{}
	keyArgs.Set("api_key", apiKey)

	return c.cache.GetOrCompute(ctx, requestcache.Key("keys", keyArgs), func(ctx context.Context) (map[string]any, error) {
		return c.doRequest(ctx, http.MethodGet, "keys", nil, nil, apiKey)
	})
}

// SensorDataOptions narrows a SensorData call.
type SensorDataOptions struct {
	// Fields restricts the returned data to the named fields. When absent,
	// the API returns all fields available for the sensor.
	Fields FieldSet

	// ReadKey is the sensor-specific key required to read some private
	// sensors.
	ReadKey string
}

// SensorData returns the current data for one sensor.
func (c *Client) SensorData(ctx context.Context, sensorIndex int, opts *SensorDataOptions) (map[string]any, error) {
	if opts == nil {
		opts = &SensorDataOptions{}
	}

	params := url.Values{}
	params.Set("sensor_index", strconv.Itoa(sensorIndex))
	if opts.ReadKey != "" {
		params.Set("read_key", opts.ReadKey)
	}
	if fields, ok := opts.Fields.resolve(); ok {
		params.Set("fields", fields)
	}

	return c.cachedGet(ctx, fmt.Sprintf("sensors/%d", sensorIndex), params)
}

// SensorHistoryOptions narrows a SensorHistory call to a time window and an
// averaging granularity.
type SensorHistoryOptions struct {
	// ReadKey is the sensor-specific key required to read some private
	// sensors.
	ReadKey string

	// StartTimestamp and EndTimestamp bound the window of returned samples.
	StartTimestamp Timestamp
	EndTimestamp   Timestamp

	// Average is the temporal averaging granularity applied by the API.
	Average Duration
}

// SensorHistory returns historical data for one sensor. The fields to return
// must be named; access to this endpoint may require separate approval for
// the key.
func (c *Client) SensorHistory(ctx context.Context, sensorIndex int, fields FieldSet, opts *SensorHistoryOptions) (map[string]any, error) {
	if opts == nil {
		opts = &SensorHistoryOptions{}
	}

	params := url.Values{}
	params.Set("sensor_index", strconv.Itoa(sensorIndex))
	if opts.ReadKey != "" {
		params.Set("read_key", opts.ReadKey)
	}
	if joined, ok := fields.resolve(); ok {
		params.Set("fields", joined)
	}
	if sec, ok := opts.StartTimestamp.resolve(c.now()); ok {
		params.Set("start_timestamp", strconv.FormatInt(sec, 10))
	}
	if sec, ok := opts.EndTimestamp.resolve(c.now()); ok {
		params.Set("end_timestamp", strconv.FormatInt(sec, 10))
	}
	if sec, ok := opts.Average.resolve(); ok {
		params.Set("average", strconv.FormatInt(sec, 10))
	}

	return c.cachedGet(ctx, fmt.Sprintf("sensors/%d/history", sensorIndex), params)
}

// SensorsDataOptions filters the set of sensors returned by SensorsData.
type SensorsDataOptions struct {
	// ReadKeys is a comma-delimited list of sensor-specific keys for private
	// sensors included in the query.
	ReadKeys string

	// LocationType restricts results by placement: 0 for outside, 1 for
	// inside. Nil means no restriction.
	LocationType *int

	// ShowOnly is a comma-delimited list of sensor_index values to return.
	ShowOnly string

	// ModifiedSince excludes sensors whose data has not changed since the
	// given time.
	ModifiedSince Timestamp

	// MaxAge excludes sensors not seen within the given duration.
	MaxAge Duration

	// BoundingBox restricts results to a geographic rectangle.
	BoundingBox *BoundingBox
}

// SensorsData returns current data for the sensors matching opts. The named
// fields determine the columns of the returned data.
func (c *Client) SensorsData(ctx context.Context, fields FieldSet, opts *SensorsDataOptions) (map[string]any, error) {
	if opts == nil {
		opts = &SensorsDataOptions{}
	}

	params := url.Values{}
	if joined, ok := fields.resolve(); ok {
		params.Set("fields", joined)
	}
	if opts.ReadKeys != "" {
		params.Set("read_keys", opts.ReadKeys)
	}
	if opts.LocationType != nil {
		params.Set("location_type", strconv.Itoa(*opts.LocationType))
	}
	if opts.ShowOnly != "" {
		params.Set("show_only", opts.ShowOnly)
	}
	if sec, ok := opts.ModifiedSince.resolve(c.now()); ok {
		params.Set("modified_since", strconv.FormatInt(sec, 10))
	}
	if sec, ok := opts.MaxAge.resolve(); ok {
		params.Set("max_age", strconv.FormatInt(sec, 10))
	}
	if bb := opts.BoundingBox; bb != nil {
		params.Set("nwlng", formatCoordinate(bb.NWLng))
		params.Set("nwlat", formatCoordinate(bb.NWLat))
		params.Set("selng", formatCoordinate(bb.SELng))
		params.Set("selat", formatCoordinate(bb.SELat))
	}

	return c.cachedGet(ctx, "sensors", params)
}

// cachedGet routes a read call through the response cache. The cache key is
// built over the normalized parameter values, so a failed exchange is never
// cached and equivalent invocations share an entry.
func (c *Client) cachedGet(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	key := requestcache.Key(path, params)
	return c.cache.GetOrCompute(ctx, key, func(ctx context.Context) (map[string]any, error) {
		return c.doRequest(ctx, http.MethodGet, path, params, nil, "")
	})
}

// CacheStats reports the response cache's hit and miss counts.
func (c *Client) CacheStats() (hits, misses uint64) {
	return c.cache.Stats()
}
