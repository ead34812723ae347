package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/seantiz/forge/internal/ledger"
	"github.com/seantiz/forge/internal/model"
	"github.com/seantiz/forge/internal/queue"
	"github.com/seantiz/forge/internal/store"
)

// DefaultPollInterval bounds how long an idle worker waits on the queue
// before checking for shutdown again.
const DefaultPollInterval = time.Second

// persistTimeout bounds a single sink write.
const persistTimeout = 5 * time.Second

// Config holds pool settings.
type Config struct {
	// Workers is the number of worker goroutines. Values below 1 fall back
	// to 1; use ResolveWorkerCount to derive it from the host.
	Workers int
	// PollInterval is the bounded queue wait. Zero means DefaultPollInterval.
	PollInterval time.Duration
}

// ResolveWorkerCount returns override when positive, otherwise the number of
// logical CPUs, and never less than 1. A negative override is logged and
// ignored.
func ResolveWorkerCount(override int, logger *slog.Logger) int {
	if override > 0 {
		return override
	}
	if override < 0 {
		logger.Warn("invalid worker count specified, using cpu count",
			"specified_count", override)
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// item is one queued submission.
type item struct {
	id   int
	task Task
}

// Pool runs submitted tasks on a fixed set of workers.
type Pool struct {
	workers      int
	pollInterval time.Duration
	runID        string
	sink         store.Sink
	logger       *slog.Logger

	queue  *queue.Queue[item]
	ledger *ledger.Ledger
	broker *EventBroker

	// mu guards id assignment together with the queue push, so queue order
	// equals id order, and the lifecycle flags.
	mu      sync.Mutex
	nextID  int
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// drained closes once every worker has exited and the broker is sealed.
	drained chan struct{}
}

// NewPool creates a pool. sink may be nil, in which case outcomes are kept
// only in memory. Workers are not started until Start.
func NewPool(cfg Config, sink store.Sink, logger *slog.Logger) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.Workers,
			"default_count", 1)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	runID := model.NewRunID()

	return &Pool{
		workers:      workers,
		pollInterval: poll,
		runID:        runID,
		sink:         sink,
		logger:       logger.With("run_id", runID),
		queue:        queue.New[item](),
		ledger:       ledger.New(),
		broker:       NewEventBroker(),
		ctx:          ctx,
		cancel:       cancel,
		drained:      make(chan struct{}),
	}
}

// Submit queues task and returns its job id. It never blocks on execution
// and writes no ledger entry; the id reads as not found until a worker
// claims it. Tasks submitted after Shutdown still get an id but never run.
func (p *Pool) Submit(task Task) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.queue.Push(item{id: id, task: task})
	queueDepth.Set(float64(p.queue.Len()))

	if p.stopped {
		p.logger.Warn("job submitted after shutdown will not run", "job_id", id)
	} else {
		p.logger.Debug("job submitted", "job_id", id, "kind", taskKind(task))
	}
	return id
}

// Start launches the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	for i := range p.workers {
		w := &worker{
			id:     i,
			pool:   p,
			logger: p.logger.With("worker_id", i),
		}
		p.wg.Go(w.run)
	}

	p.logger.Info("pool started", "workers", p.workers, "poll_interval", p.pollInterval.String())
	return nil
}

// Shutdown stops the workers after their current task and waits for them,
// or for ctx to expire. Queued tasks that no worker claimed are abandoned,
// and their event streams end once the last worker exits. Calling Shutdown
// again only waits again.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	first := !p.stopped
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	if first {
		p.logger.Info("pool shutting down", "abandoned", p.queue.Len())
		go p.drain()
	}

	select {
	case <-p.drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for workers: %w", ctx.Err())
	}
}

func (p *Pool) drain() {
	p.wg.Wait()
	streams := p.broker.Seal()
	p.logger.Info("pool stopped", "abandoned_streams", streams)
	close(p.drained)
}

// Stopped reports whether Shutdown has signalled the workers to stop.
func (p *Pool) Stopped() bool {
	return p.ctx.Err() != nil
}

// PendingCount returns how many submitted tasks no worker has claimed yet.
func (p *Pool) PendingCount() int {
	return p.queue.Len()
}

// JobStatus returns the ledger entry for id. ok is false when no worker has
// claimed the id, including ids never issued.
func (p *Pool) JobStatus(id int) (model.Job, bool) {
	return p.ledger.Get(id)
}

// AllJobStatuses lists every claimed job in no particular order.
func (p *Pool) AllJobStatuses() []model.JobSummary {
	return p.ledger.Snapshot()
}

// JobCount returns how many jobs workers have claimed.
func (p *Pool) JobCount() int {
	return p.ledger.Len()
}

// StatusCounts returns the number of claimed jobs per status.
func (p *Pool) StatusCounts() map[string]int {
	return p.ledger.Counts()
}

// Issued reports whether id has been handed out by Submit.
func (p *Pool) Issued(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return id >= 1 && id <= p.nextID
}

// Workers returns the number of workers the pool runs.
func (p *Pool) Workers() int {
	return p.workers
}

// RunID identifies this pool's lifetime in persisted records.
func (p *Pool) RunID() string {
	return p.runID
}

// Broker returns the broker publishing job transitions.
func (p *Pool) Broker() *EventBroker {
	return p.broker
}

// record writes job to the ledger and publishes it.
func (p *Pool) record(job model.Job, logger *slog.Logger) {
	if err := p.ledger.Put(job); err != nil {
		logger.Error("record job transition", "status", job.Status, "error", err)
		return
	}
	p.broker.Publish(job)
}

// persist hands a done outcome to the sink. Failures are logged only.
func (p *Pool) persist(job model.Job, logger *slog.Logger) {
	if p.sink == nil || job.Result == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	rec := store.Record{
		RunID:       p.runID,
		JobID:       job.ID,
		Outcome:     *job.Result,
		CompletedAt: *job.FinishedAt,
	}
	if err := p.sink.Save(ctx, rec); err != nil {
		logger.Warn("failed to persist result", "error", err)
	}
}
