// Command crossdb-demo is the thin HTTP front door over the facade:
// a chi router exposing one POST /query endpoint, wiring reference
// adapters (postgres/mongo/qdrant/slack) behind the adapter.Factory
// and an Anthropic-backed planning pipeline behind the facade. It
// exists to exercise the whole stack end-to-end; production
// deployments are expected to wire their own adapters and
// configuration loading around the same pkg/facade entrypoint.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hardikgo/crossdb/internal/config"
	"github.com/hardikgo/crossdb/internal/httpserver"
	"github.com/hardikgo/crossdb/pkg/adapter"
	"github.com/hardikgo/crossdb/pkg/adapter/mongo"
	"github.com/hardikgo/crossdb/pkg/adapter/postgres"
	"github.com/hardikgo/crossdb/pkg/adapter/qdrant"
	"github.com/hardikgo/crossdb/pkg/adapter/slack"
	"github.com/hardikgo/crossdb/pkg/executor"
	"github.com/hardikgo/crossdb/pkg/facade"
	"github.com/hardikgo/crossdb/pkg/llm"
	"github.com/hardikgo/crossdb/pkg/planning"
	"github.com/hardikgo/crossdb/pkg/progress"
	"github.com/hardikgo/crossdb/pkg/schema"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.DefaultConfig()
	if path := os.Getenv("CROSSDB_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
		cfg = loaded
	}

	registry := buildRegistry()
	factory := buildAdapterFactory(logger)

	llmPort := buildLLM(logger)
	pipeline := planning.NewPipeline(llmPort, registry, cfg.Planning, knownKinds(), knownTables(), logger)

	bus := progress.NewBus()
	exec := executor.New(cfg.Executor, factory, bus, logger)
	f := facade.New(pipeline, exec, bus, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(httpserver.CORSHandler(httpserver.CORSFromEnv()))

	router.Get("/healthz", handleHealth)
	router.Post("/query", handleQuery(f))

	addr := ":8080"
	if v := os.Getenv("CROSSDB_LISTEN_ADDR"); v != "" {
		addr = v
	}
	logger.Info("crossdb-demo listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Fatal("http server exited", zap.Error(err))
	}
}

type queryRequest struct {
	Question string `json:"question"`
	Optimize bool   `json:"optimize"`
	DryRun   bool   `json:"dry_run"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleQuery(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Question == "" {
			http.Error(w, "question is required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		envelope := f.Run(ctx, req.Question, facade.RunOptions{Optimize: req.Optimize, DryRun: req.DryRun})

		w.Header().Set("Content-Type", "application/json")
		if !envelope.Success {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		_ = json.NewEncoder(w).Encode(envelope)
	}
}

// buildRegistry returns an empty static schema registry (no sources,
// no tables); a production deployment would point this at a live
// catalog instead (pkg/schema.CachingRegistry wraps any RegistryPort
// with a redis-backed cache for that case).
func buildRegistry() schema.RegistryPort {
	return schema.NewStaticRegistry(nil, nil)
}

// buildAdapterFactory registers the reference adapters this binary
// ships with. Sources are resolved lazily on first query, so an
// unconfigured backend only errors if a plan actually targets it.
func buildAdapterFactory(logger *zap.Logger) *adapter.Factory {
	factory := adapter.NewFactory()

	if dsn := os.Getenv("CROSSDB_POSTGRES_DSN"); dsn != "" {
		factory.Register("postgres_primary", func() (adapter.Port, error) {
			return postgres.New(dsn, logger)
		})
	}
	if uri := os.Getenv("CROSSDB_MONGO_URI"); uri != "" {
		factory.Register("mongo_primary", func() (adapter.Port, error) {
			return mongo.New(context.Background(), uri, os.Getenv("CROSSDB_MONGO_DATABASE"), logger)
		})
	}
	if host := os.Getenv("CROSSDB_QDRANT_HOST"); host != "" {
		factory.Register("qdrant_primary", func() (adapter.Port, error) {
			return qdrant.New(host, 6334, os.Getenv("CROSSDB_QDRANT_API_KEY"), logger)
		})
	}
	if token := os.Getenv("CROSSDB_SLACK_TOKEN"); token != "" {
		factory.Register("slack_primary", func() (adapter.Port, error) {
			return slack.New(token, logger), nil
		})
	}

	return factory
}

func buildLLM(logger *zap.Logger) llm.Port {
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		model := os.Getenv("CROSSDB_ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		return llm.NewAnthropicClient(apiKey, anthropic.Model(model), logger)
	}
	logger.Warn("no ANTHROPIC_API_KEY set: planning will fall back to the rule-based classifier and cannot synthesize plans")
	return nil
}

func knownKinds() []string {
	return []string{"postgres", "mongodb", "qdrant", "slack", "shopify", "ga4"}
}

func knownTables() map[string][]string {
	return map[string][]string{}
}
