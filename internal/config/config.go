// Package config loads the orchestrator's runtime configuration. It
// mirrors the teacher's internal/config package: a YAML file, struct
// tags per concern, durations parsed natively, defaults applied to any
// section or field the file omits. Load returns an error when the file
// cannot be read.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ExecutorConfig holds spec.md §6 executor defaults.
type ExecutorConfig struct {
	PostgresLimit           int           `yaml:"postgres_limit"`
	MongoDBLimit            int           `yaml:"mongodb_limit"`
	QdrantLimit             int           `yaml:"qdrant_limit"`
	SlackLimit              int           `yaml:"slack_limit"`
	ShopifyLimit            int           `yaml:"shopify_limit"`
	GA4Limit                int           `yaml:"ga4_limit"`
	MaxTotalWeight          int           `yaml:"max_total_weight"`
	MaxConcurrentOperations int           `yaml:"max_concurrent_operations"`
	OperationTimeout        time.Duration `yaml:"operation_timeout_seconds"`
	MaxRetryAttempts        int           `yaml:"max_retry_attempts"`
}

// BackendLimit returns the configured semaphore capacity for a backend
// kind, falling back to the spec.md §4.5 default of 2 for unknown kinds.
func (c ExecutorConfig) BackendLimit(kind string) int {
	switch kind {
	case "postgres":
		return c.PostgresLimit
	case "mongodb":
		return c.MongoDBLimit
	case "qdrant":
		return c.QdrantLimit
	case "slack":
		return c.SlackLimit
	case "shopify":
		return c.ShopifyLimit
	case "ga4":
		return c.GA4Limit
	default:
		return 2
	}
}

// PlanningConfig holds spec.md §6 planning defaults.
type PlanningConfig struct {
	SchemaItemsPerKind int     `yaml:"schema_items_per_kind"`
	MaxSchemaTokens    int     `yaml:"max_schema_tokens"`
	LLMTemperature     float32 `yaml:"llm_temperature"`
}

// AggregatorConfig holds spec.md §6 aggregator defaults.
type AggregatorConfig struct {
	StreamingChunkSize int           `yaml:"streaming_chunk_size"`
	CacheEnabled       bool          `yaml:"cache_enabled"`
	CacheTTL           time.Duration `yaml:"cache_ttl_seconds"`
}

// Config is the top-level orchestrator configuration.
type Config struct {
	Executor   ExecutorConfig   `yaml:"executor"`
	Planning   PlanningConfig   `yaml:"planning"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() *Config {
	return &Config{
		Executor: ExecutorConfig{
			PostgresLimit:           8,
			MongoDBLimit:            6,
			QdrantLimit:             4,
			SlackLimit:              2,
			ShopifyLimit:            2,
			GA4Limit:                1,
			MaxTotalWeight:          24,
			MaxConcurrentOperations: 16,
			OperationTimeout:        60 * time.Second,
			MaxRetryAttempts:        3,
		},
		Planning: PlanningConfig{
			SchemaItemsPerKind: 5,
			MaxSchemaTokens:    4000,
			LLMTemperature:     0.2,
		},
		Aggregator: AggregatorConfig{
			StreamingChunkSize: 1000,
			CacheEnabled:       false,
			CacheTTL:           300 * time.Second,
		},
	}
}

// Load reads a YAML configuration file, applying spec.md §6 defaults
// for any section or field left unset by the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Decode into a zero-valued overlay so we can detect which fields
	// the file actually set, then merge onto defaults field-by-field.
	var overlay rawConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	overlay.mergeInto(cfg)

	return cfg, nil
}

// rawConfig mirrors Config but with every numeric/duration field as a
// pointer so the loader can tell "absent" apart from "explicitly zero".
type rawConfig struct {
	Executor *struct {
		PostgresLimit           *int     `yaml:"postgres_limit"`
		MongoDBLimit            *int     `yaml:"mongodb_limit"`
		QdrantLimit             *int     `yaml:"qdrant_limit"`
		SlackLimit              *int     `yaml:"slack_limit"`
		ShopifyLimit            *int     `yaml:"shopify_limit"`
		GA4Limit                *int     `yaml:"ga4_limit"`
		MaxTotalWeight          *int     `yaml:"max_total_weight"`
		MaxConcurrentOperations *int     `yaml:"max_concurrent_operations"`
		OperationTimeoutSeconds *float64 `yaml:"operation_timeout_seconds"`
		MaxRetryAttempts        *int     `yaml:"max_retry_attempts"`
	} `yaml:"executor"`
	Planning *struct {
		SchemaItemsPerKind *int     `yaml:"schema_items_per_kind"`
		MaxSchemaTokens    *int     `yaml:"max_schema_tokens"`
		LLMTemperature     *float32 `yaml:"llm_temperature"`
	} `yaml:"planning"`
	Aggregator *struct {
		StreamingChunkSize *int     `yaml:"streaming_chunk_size"`
		CacheEnabled       *bool    `yaml:"cache_enabled"`
		CacheTTLSeconds    *float64 `yaml:"cache_ttl_seconds"`
	} `yaml:"aggregator"`
}

func (r rawConfig) mergeInto(cfg *Config) {
	if r.Executor != nil {
		e := r.Executor
		if e.PostgresLimit != nil {
			cfg.Executor.PostgresLimit = *e.PostgresLimit
		}
		if e.MongoDBLimit != nil {
			cfg.Executor.MongoDBLimit = *e.MongoDBLimit
		}
		if e.QdrantLimit != nil {
			cfg.Executor.QdrantLimit = *e.QdrantLimit
		}
		if e.SlackLimit != nil {
			cfg.Executor.SlackLimit = *e.SlackLimit
		}
		if e.ShopifyLimit != nil {
			cfg.Executor.ShopifyLimit = *e.ShopifyLimit
		}
		if e.GA4Limit != nil {
			cfg.Executor.GA4Limit = *e.GA4Limit
		}
		if e.MaxTotalWeight != nil {
			cfg.Executor.MaxTotalWeight = *e.MaxTotalWeight
		}
		if e.MaxConcurrentOperations != nil {
			cfg.Executor.MaxConcurrentOperations = *e.MaxConcurrentOperations
		}
		if e.OperationTimeoutSeconds != nil {
			cfg.Executor.OperationTimeout = time.Duration(*e.OperationTimeoutSeconds * float64(time.Second))
		}
		if e.MaxRetryAttempts != nil {
			cfg.Executor.MaxRetryAttempts = *e.MaxRetryAttempts
		}
	}
	if r.Planning != nil {
		p := r.Planning
		if p.SchemaItemsPerKind != nil {
			cfg.Planning.SchemaItemsPerKind = *p.SchemaItemsPerKind
		}
		if p.MaxSchemaTokens != nil {
			cfg.Planning.MaxSchemaTokens = *p.MaxSchemaTokens
		}
		if p.LLMTemperature != nil {
			cfg.Planning.LLMTemperature = *p.LLMTemperature
		}
	}
	if r.Aggregator != nil {
		a := r.Aggregator
		if a.StreamingChunkSize != nil {
			cfg.Aggregator.StreamingChunkSize = *a.StreamingChunkSize
		}
		if a.CacheEnabled != nil {
			cfg.Aggregator.CacheEnabled = *a.CacheEnabled
		}
		if a.CacheTTLSeconds != nil {
			cfg.Aggregator.CacheTTL = time.Duration(*a.CacheTTLSeconds * float64(time.Second))
		}
	}
}
