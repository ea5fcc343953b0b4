package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/towertrack/backend/internal/config"
	"github.com/towertrack/backend/pkg/logger"
)

const TaskTypeRecompute = "recompute:cascade"

// Recompute levels, ordered bottom-up.
const (
	RecomputeLevelActivity = "activity"
	RecomputeLevelSite     = "site"
	RecomputeLevelProject  = "project"
)

// RecomputeTask asks for the derived state at one hierarchy level to be
// recomputed, propagating upward. Idempotent by design: the processor reads
// current child state, so replaying a task is harmless.
type RecomputeTask struct {
	Level string `json:"level"`
	ID    uint   `json:"id"`
}

// RecomputeQueue decouples writes from the upward status propagation.
type RecomputeQueue interface {
	// Enqueue schedules a recompute task
	Enqueue(task *RecomputeTask) error
	// IsAsync returns true if the queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

var (
	globalQueue RecomputeQueue
	queueOnce   sync.Once
)

// InitRecomputeQueue initializes the global queue based on config. Falls
// back to in-process sync mode when Redis is disabled or unreachable.
func InitRecomputeQueue(cfg *config.Config) RecomputeQueue {
	queueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Warn().Err(err).Msg("redis unavailable, recompute queue falling back to sync mode")
				globalQueue = NewSyncQueue()
			} else {
				logger.Info().Str("addr", cfg.Redis.Addr).Msg("async recompute queue initialized")
				globalQueue = queue
			}
		} else {
			logger.Info().Msg("sync recompute queue initialized (redis disabled)")
			globalQueue = NewSyncQueue()
		}
	})
	return globalQueue
}

// GetRecomputeQueue returns the global queue instance.
func GetRecomputeQueue() RecomputeQueue {
	return globalQueue
}

// AsyncQueue implements RecomputeQueue using asynq (Redis-based).
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue.
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(task *RecomputeTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeRecompute, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("level", task.Level).Uint("id", task.ID).Msg("recompute enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// SyncQueue implements RecomputeQueue with in-process processing (no Redis).
type SyncQueue struct {
	processor func(context.Context, *RecomputeTask) error
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function that processes tasks in sync mode.
func (q *SyncQueue) SetProcessor(processor func(context.Context, *RecomputeTask) error) {
	q.processor = processor
}

// Enqueue runs the recompute immediately on the calling goroutine. The
// cascade is cheap (bounded single-collection reads), and processing inline
// means a caller in sync mode observes fresh derived state on the next read.
func (q *SyncQueue) Enqueue(task *RecomputeTask) error {
	if q.processor == nil {
		logger.Warn().Msg("sync recompute queue has no processor, task dropped")
		return nil
	}
	return q.processor(context.Background(), task)
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }
