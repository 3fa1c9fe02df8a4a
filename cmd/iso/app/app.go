// Package app wires the configured backends into a running iso instance:
// chronicle driver, vector store, embedder, recall store and indexer,
// persona registry, model client, and event publisher.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/assembler"
	"github.com/gridmind/iso/pkg/chronicle"
	chronicleinmem "github.com/gridmind/iso/pkg/chronicle/inmemory"
	chroniclepg "github.com/gridmind/iso/pkg/chronicle/postgres"
	chroniclesqlite "github.com/gridmind/iso/pkg/chronicle/sqlite"
	"github.com/gridmind/iso/pkg/config"
	"github.com/gridmind/iso/pkg/dotdir"
	"github.com/gridmind/iso/pkg/embeddings"
	embedollama "github.com/gridmind/iso/pkg/embeddings/ollama"
	"github.com/gridmind/iso/pkg/eventstream"
	eventkafka "github.com/gridmind/iso/pkg/eventstream/kafka"
	eventnop "github.com/gridmind/iso/pkg/eventstream/nop"
	"github.com/gridmind/iso/pkg/llm"
	llmollama "github.com/gridmind/iso/pkg/llm/ollama"
	llmopenai "github.com/gridmind/iso/pkg/llm/openai"
	"github.com/gridmind/iso/pkg/persona"
	"github.com/gridmind/iso/pkg/recall"
	"github.com/gridmind/iso/pkg/session"
	"github.com/gridmind/iso/pkg/vector"
	vectorchroma "github.com/gridmind/iso/pkg/vector/chroma"
	vectorsqlite "github.com/gridmind/iso/pkg/vector/sqlitevec"
)

const (
	chronicleDBFile = "chronicle.db"
	vectorDBFile    = "vectors.db"
)

// App holds the wired components for one iso process.
type App struct {
	Config    *config.Config
	Chronicle chronicle.Driver
	Vector    vector.Driver
	Embedder  embeddings.Embedder
	Recall    *recall.Store
	Indexer   *recall.Indexer
	Personas  *persona.Registry
	Client    llm.Client
	Publisher eventstream.Publisher

	logger *zap.Logger
}

// New wires an App from the resolved configuration. configDir overrides
// .iso/ directory resolution when non-empty.
func New(ctx context.Context, configDir string, logger *zap.Logger) (*App, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving iso dir: %w", err)
	}

	a := &App{
		Config: cfg,
		logger: logger,
	}

	if err := a.wireChronicle(ctx, cfg, target); err != nil {
		return nil, err
	}

	if err := a.wireRecall(cfg, target); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.wirePersonas(cfg, target); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.wireClient(cfg); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.wirePublisher(cfg); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// NewEngine builds a session engine for the named agent.
func (a *App) NewEngine(agentID string, commitAborted bool) (*session.Engine, error) {
	p, err := a.Personas.Get(agentID)
	if err != nil {
		return nil, err
	}

	asm, err := assembler.New(a.Chronicle, a.Recall, assembler.Config{
		RecentN:   p.RecentN,
		SemanticK: p.SemanticK,
		MaxTurns:  p.MaxContextTurns,
		MaxTokens: p.MaxContextTokens,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	return session.NewEngine(session.Config{
		Persona:       p,
		Chronicle:     a.Chronicle,
		Assembler:     asm,
		Indexer:       a.Indexer,
		Client:        a.Client,
		Publisher:     a.Publisher,
		CommitAborted: commitAborted,
		Logger:        a.logger,
	})
}

// Close releases all wired resources. Safe on a partially wired App.
func (a *App) Close() {
	if a.Indexer != nil {
		a.Indexer.Close()
	}
	if a.Recall != nil {
		_ = a.Recall.Close()
	} else {
		if a.Embedder != nil {
			_ = a.Embedder.Close()
		}
		if a.Vector != nil {
			_ = a.Vector.Close()
		}
	}
	if a.Personas != nil {
		_ = a.Personas.Close()
	}
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.Chronicle != nil {
		_ = a.Chronicle.Close()
	}
}

func (a *App) wireChronicle(ctx context.Context, cfg *config.Config, target string) error {
	switch cfg.Storage.Driver {
	case "sqlite", "":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(target, chronicleDBFile)
		}
		driver, err := chroniclesqlite.NewDriver(chroniclesqlite.Config{DBPath: path}, a.logger)
		if err != nil {
			return fmt.Errorf("opening sqlite chronicle: %w", err)
		}
		a.Chronicle = driver

	case "postgres":
		driver, err := chroniclepg.NewDriver(ctx, cfg.Storage.PostgresURL, a.logger)
		if err != nil {
			return fmt.Errorf("opening postgres chronicle: %w", err)
		}
		a.Chronicle = driver

	case "inmemory":
		a.Chronicle = chronicleinmem.NewDriver()

	default:
		return fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}

	return nil
}

func (a *App) wireRecall(cfg *config.Config, target string) error {
	switch cfg.VectorStore.Provider {
	case "sqlite", "":
		path := cfg.VectorStore.Target
		if path == "" {
			path = filepath.Join(target, vectorDBFile)
		}
		driver, err := vectorsqlite.NewDriver(vectorsqlite.Config{
			DBPath:     path,
			Dimensions: cfg.Embedding.Dimensions,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("opening sqlite vector store: %w", err)
		}
		a.Vector = driver

	case "chroma":
		driver, err := vectorchroma.NewDriver(vectorchroma.Config{URL: cfg.VectorStore.Target}, a.logger)
		if err != nil {
			return fmt.Errorf("connecting to chroma: %w", err)
		}
		a.Vector = driver

	default:
		return fmt.Errorf("unknown vector store provider: %q", cfg.VectorStore.Provider)
	}

	switch cfg.Embedding.Provider {
	case "ollama", "":
		embedder, err := embedollama.NewEmbedder(embedollama.EmbedderConfig{
			BaseURL: cfg.Embedding.Target,
			Model:   cfg.Embedding.Model,
		})
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		a.Embedder = embedder

	default:
		return fmt.Errorf("unknown embedding provider: %q", cfg.Embedding.Provider)
	}

	store, err := recall.NewStore(recall.Config{
		Embedder:     a.Embedder,
		VectorDriver: a.Vector,
		MaxRecords:   cfg.Recall.MaxRecords,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("creating recall store: %w", err)
	}
	a.Recall = store

	indexer, err := recall.NewIndexer(&recall.IndexerConfig{
		Store:       store,
		NumWorkers:  cfg.Recall.Workers,
		QueueSize:   cfg.Recall.QueueSize,
		MaxAttempts: cfg.Recall.Retries,
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	a.Indexer = indexer

	return nil
}

func (a *App) wirePersonas(cfg *config.Config, target string) error {
	dir := cfg.Personas.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(target, dir)
	}

	registry, err := persona.NewRegistry(dir, a.logger)
	if err != nil {
		return fmt.Errorf("loading personas: %w", err)
	}

	if err := registry.Watch(); err != nil {
		return fmt.Errorf("watching personas: %w", err)
	}

	a.Personas = registry
	return nil
}

func (a *App) wireClient(cfg *config.Config) error {
	switch cfg.Model.Provider {
	case "ollama", "":
		client, err := llmollama.NewClient(llmollama.Config{BaseURL: cfg.Model.Target})
		if err != nil {
			return fmt.Errorf("creating ollama client: %w", err)
		}
		a.Client = client

	case "openai":
		client, err := llmopenai.NewClient(llmopenai.Config{
			BaseURL: cfg.Model.Target,
			APIKey:  cfg.Model.APIKey,
		})
		if err != nil {
			return fmt.Errorf("creating openai client: %w", err)
		}
		a.Client = client

	default:
		return fmt.Errorf("unknown model provider: %q", cfg.Model.Provider)
	}

	return nil
}

func (a *App) wirePublisher(cfg *config.Config) error {
	switch cfg.Events.Provider {
	case "nop", "":
		a.Publisher = eventnop.NewPublisher()

	case "kafka":
		publisher, err := eventkafka.NewPublisher(eventkafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("creating kafka publisher: %w", err)
		}
		a.Publisher = publisher

	default:
		return fmt.Errorf("unknown events provider: %q", cfg.Events.Provider)
	}

	return nil
}
