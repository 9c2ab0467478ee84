package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"agrilink/marketplace-backend/internal/config"
)

// ExpiryWorker sweeps listings whose availability window has closed and marks
// them EXPIRED so they stop appearing in matching.
type ExpiryWorker struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(db *sqlx.DB, logger *zap.Logger) *ExpiryWorker {
	return &ExpiryWorker{db: db, logger: logger}
}

// Sweep expires every active listing whose availability window has passed.
// Listings locked by an ongoing negotiation are left alone; cancellation or
// completion settles them through the match lifecycle instead.
func (w *ExpiryWorker) Sweep(ctx context.Context) error {
	query := `
		UPDATE listings
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'ACTIVE'
		  AND available_until IS NOT NULL
		  AND available_until < NOW()
	`

	result, err := w.db.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		w.logger.Info("Expired stale listings", zap.Int64("count", rows))
	}

	return nil
}

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	worker := NewExpiryWorker(db, logger)

	// Run once at startup so a long-stopped worker catches up immediately
	if err := worker.Sweep(context.Background()); err != nil {
		logger.Error("Initial expiry sweep failed", zap.Error(err))
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc("*/10 * * * *", func() {
		if err := worker.Sweep(context.Background()); err != nil {
			logger.Error("Expiry sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("Failed to schedule expiry sweep", zap.Error(err))
	}

	scheduler.Start()
	logger.Info("Expiry worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down expiry worker...")
	<-scheduler.Stop().Done()
	logger.Info("Expiry worker exiting")
}
