package async

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepforge/exam-pipeline/internal/common"
	"github.com/prepforge/exam-pipeline/internal/entity"
)

// Processor is the slice of the pipeline the queue depends on.
type Processor interface {
	Process(ctx context.Context, input string) (*entity.ProcessedExam, error)
}

// ProcessorQueue drains jobs through the pipeline with a fixed worker pool
// and writes each artifact as JSON beside the source document.
type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	outDir  string // if empty, artifacts land next to the source file

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithOutputDir(dir string) Option {
	return func(q *ProcessorQueue) {
		q.outDir = dir
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					if job.TraceID != "" {
						ctx = common.WithRequestID(ctx, job.TraceID)
					}
					exam, err := q.proc.Process(ctx, job.Path)
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
						continue
					}
					if err := q.writeArtifact(job.Path, exam); err != nil {
						q.logger.Error("artifact write failed", "worker_id", workerID, "path", job.Path, "error", err)
						continue
					}
					q.logger.Info("processed document", "worker_id", workerID, "path", job.Path, "questions", len(exam.Questions))
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) writeArtifact(srcPath string, exam *entity.ProcessedExam) error {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath)) + ".exam.json"
	dir := q.outDir
	if dir == "" {
		dir = filepath.Dir(srcPath)
	}
	b, err := json.MarshalIndent(exam, "", "  ")
	if err != nil {
		return common.WrapError(err, "marshal artifact")
	}
	return common.WrapError(os.WriteFile(filepath.Join(dir, base), b, 0o644), "write artifact")
}

func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	if job.TraceID == "" {
		job.TraceID = uuid.New().String()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "path", job.Path, "trace_id", job.TraceID)
	default:
		q.logger.Warn("queue full, applying backpressure", "path", job.Path)
		q.ch <- job
	}
	return nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
