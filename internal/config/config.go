package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration. Defaults come from the constants in this
// package, config.yaml overrides them and environment variables override both.
type Settings struct {
	Server    ServerSettings    `yaml:"server"`
	Paths     PathSettings      `yaml:"paths"`
	Index     IndexSettings     `yaml:"index"`
	Embedding EmbeddingSettings `yaml:"embedding"`
	LLM       LLMSettings       `yaml:"llm"`
	Cache     CacheSettings     `yaml:"cache"`
	Redis     RedisSettings     `yaml:"redis"`
	Qdrant    QdrantSettings    `yaml:"qdrant"`
	Log       LogSettings       `yaml:"log"`
}

type ServerSettings struct {
	ListenAddr       string        `yaml:"listenAddr"`
	APIPrefix        string        `yaml:"apiPrefix"`
	MaxUploadBytes   int64         `yaml:"maxUploadBytes"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
	IdleTimeout      time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
	RateLimitEnabled bool          `yaml:"rateLimitEnabled"`
	RateLimitPerSec  float64       `yaml:"rateLimitPerSecond"`
	RateLimitBurst   int           `yaml:"rateLimitBurst"`
	CORSOrigins      []string      `yaml:"corsOrigins"`
}

type PathSettings struct {
	DataDir    string `yaml:"dataDir"`
	StorageDir string `yaml:"storageDir"`
}

type IndexSettings struct {
	Store          string        `yaml:"store"`
	ChunkSize      int           `yaml:"chunkSize"`
	ChunkOverlap   int           `yaml:"chunkOverlap"`
	TopK           int           `yaml:"topK"`
	MinScore       float64       `yaml:"minScore"`
	EmbedBatchSize int           `yaml:"embedBatchSize"`
	BuildTimeout   time.Duration `yaml:"buildTimeout"`
}

type EmbeddingSettings struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"apiKey"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

type LLMSettings struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type CacheSettings struct {
	Enabled    bool          `yaml:"enabled"`
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"maxEntries"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QdrantSettings struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"apiKey"`
	UseTLS     bool   `yaml:"useTLS"`
	Collection string `yaml:"collection"`
}

type LogSettings struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			ListenAddr:       ServerListenAddr,
			APIPrefix:        APIPrefix,
			MaxUploadBytes:   MaxUploadBytes,
			ReadTimeout:      ReadTimeout,
			WriteTimeout:     WriteTimeout,
			IdleTimeout:      IdleTimeout,
			ShutdownTimeout:  ShutdownContextTimeout,
			RateLimitEnabled: RateLimitEnabled,
			RateLimitPerSec:  RATE_LIMIT_PER_SECOND,
			RateLimitBurst:   BURST_RATE_LIMIT,
			CORSOrigins:      []string{"*"},
		},
		Paths: PathSettings{DataDir: DataDir, StorageDir: StorageDir},
		Index: IndexSettings{
			Store:          IndexStoreType,
			ChunkSize:      ChunkSize,
			ChunkOverlap:   ChunkOverlap,
			TopK:           SimilarityTopK,
			MinScore:       SimilarityCutoff,
			EmbedBatchSize: EmbeddingBatchSize,
			BuildTimeout:   IndexBuildTimeout,
		},
		Embedding: EmbeddingSettings{
			Provider:  EmbeddingProvider,
			Model:     OpenAIEmbeddingModel,
			Dimension: EmbeddingOutputDimensionality,
			Timeout:   EmbeddingTimeout,
		},
		LLM: LLMSettings{
			Provider:    LLMProvider,
			Model:       OpenAIModelName,
			Temperature: ModelTemperature,
			MaxTokens:   ModelMaxTokens,
			Timeout:     LLMTimeout,
		},
		Cache: CacheSettings{
			Enabled:    CacheEnabled,
			Backend:    CacheBackend,
			TTL:        CacheTTL,
			MaxEntries: CacheMaxEntries,
		},
		Redis: RedisSettings{Addr: RedisAddr, DB: RedisAnswerCacheDB},
		Qdrant: QdrantSettings{
			Host:       QdrantHost,
			Port:       QdrantGrpcPort,
			UseTLS:     QdrantUseTLS,
			Collection: QdrantCollection,
		},
		Log: LogSettings{Level: "debug", JSON: IS_PROD},
	}
}

// Load reads the YAML file at path over the defaults and then applies environment
// overrides. A missing file is not an error when path is the default file name.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigFile:
		// running on defaults
	default:
		return s, fmt.Errorf("read config %s: %w", path, err)
	}

	s.applyProviderDefaults()
	if err := s.applyEnv(os.LookupEnv); err != nil {
		return s, err
	}
	return s, s.Validate()
}

// applyProviderDefaults swaps the model defaults when only the provider was changed.
func (s *Settings) applyProviderDefaults() {
	switch s.Embedding.Provider {
	case "gemini":
		if s.Embedding.Model == OpenAIEmbeddingModel {
			s.Embedding.Model = GoogleEmbeddingModel
		}
	case "local":
		if s.Embedding.Model == OpenAIEmbeddingModel {
			s.Embedding.Model = LocalEmbeddingModel
		}
		if s.Embedding.Dimension == EmbeddingOutputDimensionality {
			s.Embedding.Dimension = LocalEmbeddingDimensionality
		}
	}

	if s.LLM.Model == OpenAIModelName {
		switch s.LLM.Provider {
		case "gemini":
			s.LLM.Model = GeminiModelName
		case "anthropic":
			s.LLM.Model = AnthropicModelName
		}
	}
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("LISTEN_ADDR", &s.Server.ListenAddr)
	str("RAG_DATA_DIR", &s.Paths.DataDir)
	str("RAG_STORAGE_DIR", &s.Paths.StorageDir)
	str("REDIS_ADDR", &s.Redis.Addr)
	str("REDIS_PASSWORD", &s.Redis.Password)
	str("QDRANT_HOST", &s.Qdrant.Host)
	str("QDRANT_API_KEY", &s.Qdrant.APIKey)
	str("LOG_LEVEL", &s.Log.Level)

	if s.Embedding.APIKey == "" {
		str(apiKeyEnv(s.Embedding.Provider), &s.Embedding.APIKey)
	}
	if s.LLM.APIKey == "" {
		str(apiKeyEnv(s.LLM.Provider), &s.LLM.APIKey)
	}

	if v, ok := lookup("QDRANT_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QDRANT_PORT: %w", err)
		}
		s.Qdrant.Port = port
	}
	if v, ok := lookup("LOG_JSON"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_JSON: %w", err)
		}
		s.Log.JSON = b
	}
	return nil
}

func apiKeyEnv(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func (s Settings) Validate() error {
	var errs []error
	if s.Index.ChunkSize < 1 {
		errs = append(errs, errors.New("index.chunkSize must be positive"))
	}
	if s.Index.ChunkOverlap < 0 || s.Index.ChunkOverlap >= s.Index.ChunkSize {
		errs = append(errs, errors.New("index.chunkOverlap must be in [0, chunkSize)"))
	}
	if s.Index.TopK < 1 {
		errs = append(errs, errors.New("index.topK must be positive"))
	}
	if s.Index.MinScore < -1 || s.Index.MinScore > 1 {
		errs = append(errs, errors.New("index.minScore must be within [-1, 1]"))
	}
	if s.Cache.Enabled && s.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive when the cache is enabled"))
	}
	if !oneOf(s.Index.Store, "file", "sqlite", "qdrant") {
		errs = append(errs, fmt.Errorf("unknown index.store %q", s.Index.Store))
	}
	if !oneOf(s.Embedding.Provider, "openai", "gemini", "local") {
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", s.Embedding.Provider))
	}
	if !oneOf(s.LLM.Provider, "openai", "gemini", "anthropic") {
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", s.LLM.Provider))
	}
	if !oneOf(s.Cache.Backend, "memory", "redis") {
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", s.Cache.Backend))
	}
	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
