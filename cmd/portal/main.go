package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/vidyavistaar/portal/internal/assistant"
	"github.com/vidyavistaar/portal/internal/auth"
	"github.com/vidyavistaar/portal/internal/cache"
	"github.com/vidyavistaar/portal/internal/handler"
	"github.com/vidyavistaar/portal/internal/handler/views"
	appI18n "github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/llm"
	"github.com/vidyavistaar/portal/internal/llm/prompts"
	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/store"
	"github.com/vidyavistaar/portal/internal/store/seed"
)

const (
	sessionCleanupInterval = time.Hour
	pruneInterval          = 5 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("error reading .env file", "error", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portal",
		Short: "VidyaVistaar learning portal API",
	}

	serve := serveCmd()
	root.AddCommand(serve, reportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `portal --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "portal.db", "SQLite database path")
	f.String("fixtures", "", "Fixture YAML file to seed from (default: built-in fixtures)")
	f.Duration("latency", 0, "Simulated latency added to catalog reads")
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "https://generativelanguage.googleapis.com/v1beta/openai/", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the generation service")
	f.String("llm-model", "gemini-2.5-flash", "Generation model name")
	f.Duration("llm-timeout", 60*time.Second, "Timeout for a single generation call")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default UI language (en, pa)")
	f.String("shared-password", "123456", "Password accepted for every account")
	f.String("redis-addr", "", "Redis address for the quiz cache (empty = in-memory)")
	f.Duration("quiz-cache-ttl", 10*time.Minute, "Quiz cache entry lifetime")
	addStoreFlags(cmd)
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the monthly performance report",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.StringP("lang", "l", "en", "Report language (en, pa)")
	f.Bool("analyze", true, "Run the analysis through the generation service")
	f.String("format", "json", "Output format (json, html)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addStoreFlags(cmd)
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("portal")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/portal")
	v.AddConfigPath("/etc/portal")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openStore opens the database and seeds it from the configured fixtures.
func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db"), store.WithLatency(v.GetDuration("latency")))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := loadFixtures(ctx, db, v.GetString("fixtures")); err != nil {
		db.Close()
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	quizzes, closeCache := newQuizCache(ctx, db, v.GetString("redis-addr"), v.GetDuration("quiz-cache-ttl"))
	defer closeCache()

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		v.GetDuration("llm-timeout"),
	)
	if err := llmClient.Ping(ctx); err != nil {
		// The assistant answers with an apology while the endpoint is down.
		slog.Warn("LLM health check failed", "url", v.GetString("llm-url"), "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", llmClient.Model())
	}

	authn, err := auth.New(db, v.GetString("shared-password"))
	if err != nil {
		return fmt.Errorf("create authenticator: %w", err)
	}

	cfg := model.PortalConfig{
		LLMModel:     llmClient.Model(),
		LLMTimeout:   v.GetDuration("llm-timeout"),
		Lang:         lang,
		QuizCacheTTL: v.GetDuration("quiz-cache-ttl"),
	}
	h, err := handler.New(db, quizzes, llmClient, authn, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server",
			"addr", addr,
			"model", cfg.LLMModel,
			"llm_url", v.GetString("llm-url"),
			"lang", lang,
			"redis", v.GetString("redis-addr"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		cleanupSessions(gctx, db, sessionCleanupInterval)
		return nil
	})
	g.Go(func() error {
		pruneLoop(gctx, h, pruneInterval)
		return nil
	})
	return g.Wait()
}

// newQuizCache picks Redis when an address is configured and the in-memory
// cache otherwise. The returned func releases the Redis client.
func newQuizCache(ctx context.Context, db *store.Store, redisAddr string, ttl time.Duration) (cache.QuizCache, func()) {
	if redisAddr == "" {
		return cache.NewMemory(db, ttl), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, quizzes load from the database until it recovers", "addr", redisAddr, "error", err)
	} else {
		slog.Info("using redis quiz cache", "addr", redisAddr)
	}
	return cache.NewRedis(client, db, ttl), func() { _ = client.Close() }
}

func cleanupSessions(ctx context.Context, db *store.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanupExpiredSessions(ctx)
			if err != nil {
				slog.Warn("failed to clean up sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("removed expired sessions", "count", n)
			}
		}
	}
}

type pruner interface {
	Prune(ctx context.Context) (attempts, conversations int)
}

// pruneLoop drops stale quiz attempts and idle conversations every tick.
func pruneLoop(ctx context.Context, p pruner, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			attempts, convs := p.Prune(ctx)
			if attempts > 0 || convs > 0 {
				slog.Debug("pruned in-memory state", "attempts", attempts, "conversations", convs)
			}
		}
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	format := strings.ToLower(v.GetString("format"))
	if format != "json" && format != "html" {
		return fmt.Errorf("unknown format %q (want json or html)", format)
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	lang := model.LanguageFromTag(v.GetString("lang"))
	if err := appI18n.Init(lang.Tag()); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	opts := assistant.ReportOptions{Language: lang, Now: time.Now().UTC()}
	if v.GetBool("analyze") {
		client := llm.New(
			v.GetString("llm-url"),
			v.GetString("llm-key"),
			v.GetString("llm-model"),
			v.GetDuration("llm-timeout"),
		)
		opts.Gen = client
		opts.Model = client.Model()
	}
	rep, err := assistant.BuildMonthlyReport(ctx, db, opts)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeReport(ctx, w, rep, format); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("report written", "output", outPath, "struggling", len(rep.Digest.Struggling),
		"analysis", rep.Analysis != "")
	return nil
}

func writeReport(ctx context.Context, w io.Writer, rep model.MonthlyReport, format string) error {
	if format == "html" {
		ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(rep.Language.Tag()))
		return views.AnalysisReport(rep).Render(ctx, w)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	// Ensure trailing newline.
	_, err = fmt.Fprintln(w)
	return err
}

// loadFixtures imports the fixture file, or the built-in fixtures when path
// is empty. Content already imported under the same name is skipped.
func loadFixtures(ctx context.Context, db *store.Store, path string) error {
	name, data := seed.Path, seed.Fixtures
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		name = path
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(ctx, name)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", name, err)
	}
	if storedHash == hash {
		slog.Info("fixtures unchanged, skipping", "path", name)
		return nil
	}
	if storedHash != "" {
		slog.Warn("fixtures changed since last import, merging", "path", name)
	}

	fx, err := store.ParseFixtures(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if err := db.ImportFixtures(ctx, fx); err != nil {
		return fmt.Errorf("import %s: %w", name, err)
	}
	if err := db.SetImportedFileHash(ctx, name, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", name, err)
	}
	slog.Info("imported fixtures", "path", name, "users", len(fx.Users), "quizzes", len(fx.Quizzes))
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
