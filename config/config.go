package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the RAG service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Query       QueryConfig       `yaml:"query"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HTTPConfig holds the listen address for the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// OllamaConfig holds connection details for the Ollama host used for
// both answer generation and embeddings.
type OllamaConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Addr returns the host:port pair of the Ollama server.
func (c OllamaConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the base URL of the Ollama server.
func (c OllamaConfig) BaseURL() string {
	return "http://" + c.Addr()
}

// EmbeddingConfig selects the embedding model served by the Ollama host.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string       `yaml:"type"` // "qdrant" or "bolt"
	Collection string       `yaml:"collection"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
	Bolt       BoltConfig   `yaml:"bolt"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Addr returns the host:port pair of the Qdrant server.
func (c QdrantConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BoltConfig configures the local file-backed vector store.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// ChunkingConfig configures how documents are split before embedding.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig holds defaults for document ingestion.
type IngestConfig struct {
	FileTypes []string `yaml:"file_types"`
	Excludes  []string `yaml:"excludes"`
}

// QueryConfig holds retrieval defaults.
type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration, matching the documented
// environment defaults of the service.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":8000"},
		Ollama: OllamaConfig{
			Host:        "ollama",
			Port:        11434,
			Model:       "mistral",
			TimeoutSecs: 120,
		},
		Embedding: EmbeddingConfig{
			Model:     "nomic-embed-text",
			BatchSize: 100,
		},
		VectorStore: VectorStoreConfig{
			Type:       "qdrant",
			Collection: "copilot_orchestra_docs",
			Qdrant: QdrantConfig{
				Host:        "qdrant",
				Port:        6333,
				TimeoutSecs: 30,
			},
			Bolt: BoltConfig{Path: "orchestra.db"},
		},
		Chunking: ChunkingConfig{
			Size:    512,
			Overlap: 50,
		},
		Ingest: IngestConfig{
			FileTypes: []string{".md", ".txt", ".py", ".js", ".ts", ".java", ".go", ".rs"},
			Excludes:  []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**", "**/__pycache__/**"},
		},
		Query:   QueryConfig{TopK: 3},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from a YAML file, then applies environment
// variable overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() {
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Ollama.Host, "OLLAMA_HOST")
	setInt(&c.Ollama.Port, "OLLAMA_PORT")
	setString(&c.Ollama.Model, "OLLAMA_MODEL")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.VectorStore.Type, "VECTOR_STORE")
	setString(&c.VectorStore.Qdrant.Host, "QDRANT_HOST")
	setInt(&c.VectorStore.Qdrant.Port, "QDRANT_PORT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
