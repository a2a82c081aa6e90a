package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD               = false
	LOG_LEVEL_PROD        = slog.LevelInfo
	TRACE_ID_KEY          = "traceId"
	RATE_LIMIT_PER_SECOND = 5
	BURST_RATE_LIMIT      = 10
	RateLimitEnabled      = true

	//server timeouts - query synthesis can take a while so write timeout is generous
	ReadTimeout            = 10 * time.Second
	WriteTimeout           = 90 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":5000"
	APIPrefix        = "/api"
	MaxUploadBytes   = 50 << 20 //50mb

	//directories
	DataDir    = "data"
	StorageDir = "storage"

	//chunking + retrieval
	ChunkSize          = 1024
	ChunkOverlap       = 20
	SimilarityTopK     = 3
	SimilarityCutoff   = 0.7
	EmbeddingBatchSize = 100
	IndexBuildTimeout  = 10 * time.Minute

	//index store: file | sqlite | qdrant
	IndexStoreType  = "file"
	SqliteIndexFile = "index.db"

	//vectorDB
	QdrantHost       = "localhost"
	QdrantGrpcPort   = 6334
	QdrantUseTLS     = false //set for https
	QdrantPoolSize   = 1     //2-5 is preferred for prod according to documentation
	QdrantCollection = "knowledge-chunks"

	//embeddings: openai | gemini | local
	EmbeddingProvider             = "openai"
	OpenAIEmbeddingModel          = "text-embedding-ada-002"
	GoogleEmbeddingModel          = "gemini-embedding-001"
	LocalEmbeddingModel           = "local-hash-v1"
	EmbeddingOutputDimensionality = 1536
	LocalEmbeddingDimensionality  = 512
	EmbeddingTimeout              = 60 * time.Second

	//llm: openai | gemini | anthropic
	LLMProvider        = "openai"
	OpenAIModelName    = "gpt-3.5-turbo"
	GeminiModelName    = "gemini-2.5-flash-lite"
	AnthropicModelName = "claude-3-5-haiku-latest"
	ModelTemperature   = 0.2
	ModelMaxTokens     = 512
	LLMTimeout         = 60 * time.Second

	//http transport shared by the SDK clients
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//response cache: memory | redis
	CacheEnabled    = true
	CacheBackend    = "memory"
	CacheTTL        = 3600 * time.Second
	CacheMaxEntries = 1000
	CacheKeyPrefix  = "answer:"

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisAnswerCacheDB = 0

	DefaultConfigFile = "config.yaml"
)

// AllowedExtensions lists the document types accepted for ingestion and upload.
var AllowedExtensions = []string{"txt", "pdf", "md", "html", "csv", "json", "docx"}
