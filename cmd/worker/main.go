package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/studydesk/api/internal/config"
	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/highlight"
	"github.com/studydesk/api/internal/logger"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
	"github.com/studydesk/api/internal/workers"
)

// reindexScanInterval is how often the idle-note scan runs. It is a safety net
// under the per-edit debounced jobs, so it does not need to be tight.
const reindexScanInterval = 1 * time.Minute

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for verbose logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Duration("expansion_horizon", cfg.ExpansionHorizon),
		zap.Duration("reindex_debounce", cfg.ReindexDebounce),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Initialize repositories
	eventRepo := database.NewEventRepository(db)
	instanceRepo := database.NewInstanceRepository(db)
	noteRepo := database.NewNoteRepository(db)
	noteActivityRepo := database.NewNoteActivityRepository(db)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Create workers
	expander := workers.NewExpander(eventRepo, instanceRepo, cfg.ExpansionHorizon, zapLogger)
	reindexer := workers.NewReindexer(
		noteRepo,
		noteActivityRepo,
		jobQueue,
		highlight.NewEngine(models.DefaultCategories(), zapLogger),
		highlight.DefaultRetrySchedule(),
		cfg.ReindexDebounce,
		zapLogger,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	// Process messages, dispatching by job type
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				var err error
				switch msg.GetJob().Type {
				case queue.JobTypeRecurrenceExpansion:
					err = expander.ProcessJob(ctx, msg)
				default:
					err = reindexer.ProcessJob(ctx, msg)
				}
				if err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle queue errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	// Periodic idle-note scan: catches notes whose debounced job was lost and
	// notes edited by paths that never enqueue.
	go func() {
		ticker := time.NewTicker(reindexScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reindexer.ScheduleReindexJobs(ctx); err != nil {
					zapLogger.Warn("reindex_scan_failed", zap.Error(err))
				}
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("shutdown_signal_received")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("worker_stopped")
}
