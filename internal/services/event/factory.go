package event

import (
	"time"

	"krostyshop/internal/realtime"
	"krostyshop/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkerConfig holds configuration for the event worker
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultWorkerConfig returns the worker defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    50,
	}
}

// NewEventProcessingSystem wires a worker over the postgres repositories
func NewEventProcessingSystem(db *pgxpool.Pool, pub realtime.Publisher, config WorkerConfig) *Worker {
	eventRepo := postgres.NewEventRepository(db)
	processor := NewProcessor(eventRepo, postgres.NewUnitOfWork(db), pub)
	return NewWorker(eventRepo, processor, config.PollInterval, config.BatchSize)
}
