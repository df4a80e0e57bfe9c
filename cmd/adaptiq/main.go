package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/adaptiq/internal/observability"
	"github.com/hrygo/adaptiq/internal/profile"
	"github.com/hrygo/adaptiq/plugin/ai"
	"github.com/hrygo/adaptiq/plugin/ai/vector"
	"github.com/hrygo/adaptiq/server/quiz"
	"github.com/hrygo/adaptiq/server/runner/embedding"
	"github.com/hrygo/adaptiq/store"
	"github.com/hrygo/adaptiq/store/db"
)

var version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "adaptiq",
		Short:   "Adaptive quiz engine with LLM-generated question pools",
		Version: version,
	}

	pf := root.PersistentFlags()
	pf.String("mode", "demo", "Run mode (prod, dev, demo)")
	pf.String("data", "", "Data directory for the sqlite driver")
	pf.String("driver", "sqlite", "Database driver (sqlite, postgres)")
	pf.String("dsn", "", "Database connection string")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(generateCmd(), backfillCmd())
	return root
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Assemble an adaptive quiz for a user and print the session",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("user", "u", "", "User identifier (required)")
	f.IntP("count", "n", 10, "Number of questions to assemble")
	f.Bool("weighted-time", false, "Weight average response time by difficulty in the ability estimate")
	f.Float64("rate", 2, "LLM request rate limit in requests per second (0 = unlimited)")
	f.Int64("seed", 0, "Random seed for parameter assignment (0 = time-based)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill similarity-index embeddings for pool questions",
		RunE:  runBackfill,
	}
	cmd.Flags().Bool("once", false, "Process pending questions once and exit instead of looping")
	return cmd
}

// viperForCmd binds a command's flags and ADAPTIQ_* environment variables to a
// fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.Root().PersistentFlags())

	v.SetEnvPrefix("ADAPTIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func setupLogging(v *viper.Viper) {
	var level slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(v.GetString("log-format")) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func buildProfile(v *viper.Viper) (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    v.GetString("mode"),
		Data:    v.GetString("data"),
		Driver:  v.GetString("driver"),
		DSN:     v.GetString("dsn"),
		Version: version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

func openStore(p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, fmt.Errorf("create db driver: %w", err)
	}
	if err := driver.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store.New(driver, p), nil
}

// aiServices builds the embedding and LLM clients from the profile. Both
// commands refuse to run without a configured backend because every code path
// here needs embeddings.
func aiServices(p *profile.Profile) (ai.EmbeddingService, ai.LLMService, error) {
	cfg := ai.NewConfigFromProfile(p)
	if !cfg.Enabled {
		return nil, nil, fmt.Errorf("AI backend not configured: set ADAPTIQ_AI_API_KEY or ADAPTIQ_AI_BASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid AI config: %w", err)
	}
	embeddingService, err := ai.NewEmbeddingService(&cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding service: %w", err)
	}
	llmService, err := ai.NewLLMService(&cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("create LLM service: %w", err)
	}
	return embeddingService, llmService, nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	p, err := buildProfile(v)
	if err != nil {
		return err
	}
	st, err := openStore(p)
	if err != nil {
		return err
	}
	defer st.Close()

	embeddingService, llmService, err := aiServices(p)
	if err != nil {
		return err
	}

	index := vector.NewIndex(st, embeddingService, p.AIEmbeddingModel, vector.Thresholds{
		Batch:  p.BatchThreshold,
		User:   p.UserThreshold,
		Global: p.GlobalThreshold,
	})

	corpus := &quiz.Corpus{}
	if p.CorpusPath != "" {
		corpus, err = quiz.LoadCorpus(p.CorpusPath)
		if err != nil {
			return fmt.Errorf("load corpus %s: %w", p.CorpusPath, err)
		}
		slog.Info("loaded reference corpus", "path", p.CorpusPath, "entries", corpus.Len())
	}

	var verifier quiz.Verifier
	if p.VerifyAnswers {
		verifier = quiz.NewLLMVerifier(llmService)
	}

	seed := v.GetInt64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	pipeline := quiz.NewPipeline(
		quiz.NewLLMCandidateSource(llmService),
		index,
		verifier,
		corpus,
		quiz.NewRetryPolicy(p.MaxRetries, v.GetFloat64("rate")),
		st,
		quiz.NewSeededRand(seed),
	)
	metrics := quiz.NewMetrics()
	pipeline.SetMetrics(metrics)
	engine := quiz.NewEngine(st, index, pipeline, quiz.Options{
		WeightedTime:    v.GetBool("weighted-time"),
		ParallelBuckets: p.ParallelBuckets,
	})

	userID := v.GetString("user")
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	reqCtx := observability.NewRequestContext(slog.Default(), userID)
	ctx = observability.WithRequestContext(ctx, reqCtx)

	session, err := engine.AssembleAdaptiveQuiz(ctx, userID, v.GetInt("count"))
	if err != nil {
		return fmt.Errorf("assemble quiz: %w", err)
	}
	metrics.LogSummary(reqCtx)

	out, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	p, err := buildProfile(v)
	if err != nil {
		return err
	}
	st, err := openStore(p)
	if err != nil {
		return err
	}
	defer st.Close()

	embeddingService, _, err := aiServices(p)
	if err != nil {
		return err
	}

	runner := embedding.NewRunner(st, embeddingService, p.AIEmbeddingModel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if v.GetBool("once") {
		runner.RunOnce(ctx)
		return nil
	}
	slog.Info("starting embedding backfill loop")
	runner.Run(ctx)
	return nil
}
