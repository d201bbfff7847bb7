package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/askbase/internal/api/handlers"
	"github.com/cloo-solutions/askbase/internal/api/middleware"
	"github.com/cloo-solutions/askbase/internal/config"
	"github.com/cloo-solutions/askbase/internal/database"
	"github.com/cloo-solutions/askbase/internal/embedcache"
	"github.com/cloo-solutions/askbase/internal/jobs"
	"github.com/cloo-solutions/askbase/internal/openai"
	"github.com/cloo-solutions/askbase/internal/repository"
	"github.com/cloo-solutions/askbase/internal/server"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/cloo-solutions/askbase/internal/storage"
	"github.com/cloo-solutions/askbase/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		Long:  "Start the askbase chat API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	violationRepo := repository.NewPrivacyViolationRepository(pool)

	var archiver service.ViolationArchiver
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
	}

	observer := service.NewAuditObserver(violationRepo, archiver)

	// Retrieval serves from an in-memory snapshot refreshed in the
	// background; the first refresh happens before the server accepts
	// traffic.
	snapshotStore := service.NewSnapshotStore(chunkRepo)
	if err := snapshotStore.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load initial knowledge snapshot: %w", err)
	}
	log.Printf("knowledge snapshot loaded: %d chunks", snapshotStore.Size())

	snapshotWorker := jobs.NewWorker(jobs.NewSnapshotRefresher(snapshotStore), cfg.SnapshotRefreshInterval)
	go snapshotWorker.Start(ctx)

	var embedder service.Embedder
	var completions service.CompletionProvider
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			CompletionModel: cfg.CompletionModel,
		})
		embedder = embedcache.New(client)
		completions = &completionAdapter{client: client}
	} else {
		log.Println("OPENAI_API_KEY not set: chat requests will fail until configured")
		embedder = &noOpEmbedder{}
		completions = &noOpCompletionProvider{}
	}

	generator := service.NewGenerationClient(completions, service.DefaultPriceTable(),
		service.WithTimeout(cfg.GenerationTimeout))

	pipeline := service.NewChatPipeline(
		embedder,
		service.NewRetrievalOrchestrator(snapshotStore),
		service.NewContextAssembler(cfg.MaxContextChars),
		generator,
		service.NewLeakGuard(cfg.MinFragmentLength),
		service.NewCitationExtractor(service.DefaultOverlapThreshold),
		observer,
		service.PipelineConfig{
			TopK:       cfg.TopK,
			LeakPolicy: service.LeakPolicy(cfg.LeakPolicy),
		},
	)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:     middleware.NewStaticKeyValidator(cfg.APIKeys),
		ChatHandler:       handlers.NewChatHandler(pipeline),
		ViolationsHandler: handlers.NewViolationsHandler(violationRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	snapshotWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// completionAdapter bridges the OpenAI client to the pipeline's provider
// interface.
type completionAdapter struct {
	client *openai.Client
}

func (a *completionAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, service.TokenUsage, error) {
	text, usage, err := a.client.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", service.TokenUsage{}, err
	}
	return text, service.TokenUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}, nil
}

func (a *completionAdapter) Model() string {
	return a.client.Model()
}

type noOpEmbedder struct{}

func (noOpEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

type noOpCompletionProvider struct{}

func (noOpCompletionProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, service.TokenUsage, error) {
	return "", service.TokenUsage{}, fmt.Errorf("completion provider not configured: OPENAI_API_KEY required")
}

func (noOpCompletionProvider) Model() string { return "" }

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case err == migrate.ErrNilVersion:
		log.Println("migrations: database is up to date (no migrations applied)")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case upErr == migrate.ErrNoChange:
		log.Printf("migrations: database is up to date (version %d)", version)
	default:
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
