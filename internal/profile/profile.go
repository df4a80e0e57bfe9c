package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration of the engine.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo".
	Mode string
	// Data is the data directory.
	Data string
	// DSN points to where adaptiq stores its own data.
	DSN string
	// Driver is the database driver (sqlite or postgres).
	Driver string
	// Version is the current version of the engine.
	Version string

	// AI configuration.
	AIProvider       string // ADAPTIQ_AI_PROVIDER (default: openai)
	AIAPIKey         string // ADAPTIQ_AI_API_KEY
	AIBaseURL        string // ADAPTIQ_AI_BASE_URL
	AILLMModel       string // ADAPTIQ_AI_LLM_MODEL (default: gpt-4o-mini)
	AIEmbeddingModel string // ADAPTIQ_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDims  int    // ADAPTIQ_AI_EMBEDDING_DIMENSIONS (default: 1024)

	// Quiz generation tuning.
	MaxRetries       int     // generation attempt budget per bucket, 3-5
	BatchThreshold   float64 // similarity threshold against the current batch
	UserThreshold    float64 // similarity threshold against the user's history
	GlobalThreshold  float64 // similarity threshold against the global index
	VerifyAnswers    bool    // enable the independent answer verification pass
	ParallelBuckets  bool    // run difficulty buckets concurrently
	CorpusPath       string  // reference corpus CSV, optional
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled reports whether a generative backend is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != "" || p.AIBaseURL != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from ADAPTIQ_* environment variables.
func (p *Profile) FromEnv() {
	p.AIProvider = getEnvOrDefault("ADAPTIQ_AI_PROVIDER", "openai")
	p.AIAPIKey = os.Getenv("ADAPTIQ_AI_API_KEY")
	p.AIBaseURL = os.Getenv("ADAPTIQ_AI_BASE_URL")
	p.AILLMModel = getEnvOrDefault("ADAPTIQ_AI_LLM_MODEL", "gpt-4o-mini")
	p.AIEmbeddingModel = getEnvOrDefault("ADAPTIQ_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIEmbeddingDims = getIntEnvOrDefault("ADAPTIQ_AI_EMBEDDING_DIMENSIONS", 1024)

	p.MaxRetries = getIntEnvOrDefault("ADAPTIQ_MAX_RETRIES", 5)
	p.BatchThreshold = getFloatEnvOrDefault("ADAPTIQ_BATCH_THRESHOLD", 0.85)
	p.UserThreshold = getFloatEnvOrDefault("ADAPTIQ_USER_THRESHOLD", 0.80)
	p.GlobalThreshold = getFloatEnvOrDefault("ADAPTIQ_GLOBAL_THRESHOLD", 0.75)
	p.VerifyAnswers = os.Getenv("ADAPTIQ_VERIFY_ANSWERS") == "true"
	p.ParallelBuckets = os.Getenv("ADAPTIQ_PARALLEL_BUCKETS") == "true"
	p.CorpusPath = os.Getenv("ADAPTIQ_CORPUS_PATH")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.MaxRetries < 3 {
		p.MaxRetries = 3
	}
	if p.MaxRetries > 5 {
		p.MaxRetries = 5
	}

	for _, t := range []float64{p.BatchThreshold, p.UserThreshold, p.GlobalThreshold} {
		if t < 0.5 || t > 1.0 {
			return errors.Errorf("similarity threshold out of range: %v", t)
		}
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("adaptiq_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	} else if p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	return nil
}
