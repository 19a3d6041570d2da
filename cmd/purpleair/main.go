// Command purpleair is a small query utility for the PurpleAir API. It reads
// its configuration from the environment (and a .env file when present),
// runs one query and prints the JSON response.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/openaer/purpleair"
	"github.com/openaer/purpleair/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const usage = `usage: purpleair <command> [args]

commands:
  check-key [key]            show metadata for an api key (default: read key)
  sensor <index> [fields]    current data for one sensor
  sensors <fields>           current data for all sensors
  history <index> <fields>   historical data for one sensor
`

func main() {
	configureLogging()

	err := run(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// a missing .env file is fine; the environment takes precedence anyway
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("client configuration failed: %w", err)
	}

	result, err := dispatch(ctx, client, cfg, args)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	fmt.Println(string(out))

	hits, misses := client.CacheStats()
	log.Debug().Uint64("hits", hits).Uint64("misses", misses).Msg("cache statistics")

	return nil
}

func buildClient(ctx context.Context, cfg config.Config) (*purpleair.Client, error) {
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(configureHTTPTransport(cfg.Client)),
	}

	opts := []purpleair.Option{
		purpleair.WithVerification(cfg.API.VerifyKeys),
		purpleair.WithCacheTTL(cfg.API.CacheTTL()),
		purpleair.WithCacheMaxEntries(cfg.API.CacheMaxEntries),
		purpleair.WithHTTPClient(httpClient),
		purpleair.WithLogger(log.Logger),
	}
	if cfg.API.WriteKey != "" {
		opts = append(opts, purpleair.WithWriteKey(cfg.API.WriteKey))
	}
	if cfg.API.URL != "" {
		opts = append(opts, purpleair.WithBaseURL(cfg.API.URL))
	}

	return purpleair.New(ctx, cfg.API.ReadKey, opts...)
}

func dispatch(ctx context.Context, client *purpleair.Client, cfg config.Config, args []string) (map[string]any, error) {
	switch args[0] {
	case "check-key":
		key := cfg.API.ReadKey
		if len(args) > 1 {
			key = args[1]
		}
		return client.CheckKey(ctx, key)

	case "sensor":
		if len(args) < 2 {
			return nil, fmt.Errorf("sensor requires an index argument")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid sensor index %q: %w", args[1], err)
		}
		opts := &purpleair.SensorDataOptions{}
		if len(args) > 2 {
			opts.Fields = purpleair.FieldsString(args[2])
		}
		return client.SensorData(ctx, index, opts)

	case "sensors":
		if len(args) < 2 {
			return nil, fmt.Errorf("sensors requires a fields argument")
		}
		return client.SensorsData(ctx, purpleair.FieldsString(args[1]), nil)

	case "history":
		if len(args) < 3 {
			return nil, fmt.Errorf("history requires index and fields arguments")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid sensor index %q: %w", args[1], err)
		}
		return client.SensorHistory(ctx, index, purpleair.FieldsString(args[2]), nil)

	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

func configureLogging() {
	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func configureHTTPTransport(cfg config.ClientConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
