package config

const (
	defaultStorageDriver = "sqlite"

	defaultVectorProvider = "sqlite"

	defaultModelProvider = "ollama"
	defaultModelTarget   = "http://localhost:11434"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultRecallMaxRecords = 4096
	defaultRecallQueueSize  = 256
	defaultRecallWorkers    = 3
	defaultRecallRetries    = 3

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "iso.turns"

	defaultPersonasDir = "personas"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Model: ModelConfig{
			Provider: defaultModelProvider,
			Target:   defaultModelTarget,
		},
		Recall: RecallConfig{
			MaxRecords: defaultRecallMaxRecords,
			QueueSize:  defaultRecallQueueSize,
			Workers:    defaultRecallWorkers,
			Retries:    defaultRecallRetries,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Personas: PersonasConfig{
			Dir: defaultPersonasDir,
		},
	}
}
