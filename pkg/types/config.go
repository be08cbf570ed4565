package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout bounds every single outbound request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "genegap/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LiteratureConfig holds settings for the PubMed literature source.
type LiteratureConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the E-utilities root (default https://eutils.ncbi.nlm.nih.gov/entrez/eutils).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is an optional NCBI key; with a key requests may be paced faster.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is sent with each request as NCBI recommends.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// RequestsPerSecond paces requests without an API key (default 3).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// KeyedRequestsPerSecond paces requests with an API key (default 10).
	KeyedRequestsPerSecond float64 `json:"keyed_requests_per_second" yaml:"keyed_requests_per_second"`
}

// LLMConfig holds settings for the local language model backend (Ollama).
type LLMConfig struct {
	// Host is the Ollama base URL (default http://localhost:11434).
	Host string `json:"host" yaml:"host"`

	// Model is the default model identifier when a request names none.
	Model string `json:"model" yaml:"model"`

	// Timeout bounds a single generation call (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ExtractionConfig holds settings for gene extraction.
type ExtractionConfig struct {
	// BatchSize is the maximum number of abstracts per model call (default 5).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// MaxBatchChars caps the abstract text sent per model call (default 6000).
	MaxBatchChars int `json:"max_batch_chars" yaml:"max_batch_chars"`

	// MaxRetries is the number of extra attempts for a failed batch (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CrossRefConfig holds settings for the publication cross-referencer.
type CrossRefConfig struct {
	// SampleSize is the number of articles fetched per (gene, species) to
	// derive study types and trend (default 20).
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// CacheTTL is the lifetime of cached profiles. Zero disables caching.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	// Concurrency is the number of cross-reference lookups in flight (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxGenes is the number of top genes cross-referenced per run (default 15).
	MaxGenes int `json:"max_genes" yaml:"max_genes"`

	// MaxSummaries caps the gene summaries generated per run (default 10).
	MaxSummaries int `json:"max_summaries" yaml:"max_summaries"`

	// DefaultMaxArticles is used when a query does not set one (default 20).
	DefaultMaxArticles int `json:"default_max_articles" yaml:"default_max_articles"`
}

// EnrichmentConfig holds settings for GO, ortholog and funding lookups.
type EnrichmentConfig struct {
	HTTPConfig `yaml:",inline"`

	UniProtURL  string `json:"uniprot_url" yaml:"uniprot_url"`
	QuickGOURL  string `json:"quickgo_url" yaml:"quickgo_url"`
	EnsemblURL  string `json:"ensembl_url" yaml:"ensembl_url"`
	PlantsURL   string `json:"ensembl_plants_url" yaml:"ensembl_plants_url"`
	ReporterURL string `json:"reporter_url" yaml:"reporter_url"`

	// CacheSize bounds the number of cached lookups per service (default 100).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CacheTTL is the lifetime of cached lookups (default 1h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// ArchiveConfig holds settings for the run archive.
type ArchiveConfig struct {
	// Enabled controls whether completed runs are persisted.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory holding the archive database.
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults limits listing size when the caller gives no limit.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`

	// AnalyzeTimeout bounds a whole /analyze request (default 10m).
	AnalyzeTimeout time.Duration `json:"analyze_timeout" yaml:"analyze_timeout"`
}

// Config groups all component configurations.
type Config struct {
	LogLevel   string           `json:"log_level" yaml:"log_level"`
	Literature LiteratureConfig `json:"literature" yaml:"literature"`
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	CrossRef   CrossRefConfig   `json:"crossref" yaml:"crossref"`
	Pipeline   PipelineConfig   `json:"pipeline" yaml:"pipeline"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment"`
	Archive    ArchiveConfig    `json:"archive" yaml:"archive"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}
