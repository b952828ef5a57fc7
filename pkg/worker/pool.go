package worker

import (
	"log"
	"sync"
	"time"

	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/models"
	"github.com/koson/govoltcore/pkg/profiling"
)

// Pool manages concurrent baseline analysis workers
type Pool struct {
	jobs         chan models.WorkItem
	results      chan models.WorkResult
	webhookQueue chan models.WebhookItem
	workers      int
	bufferPool   sync.Pool
	shutdown     chan struct{}
	wg           sync.WaitGroup
	processor    ProcessorFunc
	sender       SenderFunc
}

// ProcessorFunc defines the signature for baseline analysis
type ProcessorFunc func(voltage, current []float64, currentUnit string, cfg *config.Config) interface{}

// SenderFunc delivers a queued webhook; nil disables delivery.
type SenderFunc func(item models.WebhookItem) error

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Sender    SenderFunc
}

// New creates a new worker pool with specified configuration
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	// jobs/results are buffered at 2x worker count so queueing new work
	// does not block while workers are busy; webhooks get a wider buffer
	// since delivery is a slower network operation
	pool := &Pool{
		jobs:         make(chan models.WorkItem, opts.Workers*2),
		results:      make(chan models.WorkResult, opts.Workers*2),
		webhookQueue: make(chan models.WebhookItem, opts.Workers*4),
		workers:      opts.Workers,
		shutdown:     make(chan struct{}),
		processor:    opts.Processor,
		sender:       opts.Sender,
		bufferPool: sync.Pool{
			New: func() interface{} {
				// CV traces run hundreds to low thousands of samples
				return &models.BufferSet{
					Voltage: make([]float64, 0, 1024),
					Current: make([]float64, 0, 1024),
				}
			},
		},
	}

	pool.start()
	return pool
}

// start initializes and starts all workers
func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.webhookProcessor()

	log.Printf("🔧 Worker pool started with %d workers", p.workers)
}

// worker processes analysis jobs from the jobs channel
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			result := p.processJob(job)
			p.results <- result

		case <-p.shutdown:
			return
		}
	}
}

// processJob handles one baseline analysis with buffer reuse
func (p *Pool) processJob(job models.WorkItem) models.WorkResult {
	buffers := p.bufferPool.Get().(*models.BufferSet)
	defer p.bufferPool.Put(buffers)

	cfg := job.Config.(*config.Config)

	startTime := time.Now()
	result := p.processor(job.Voltage, job.Current, job.CurrentUnit, cfg)
	processingTime := time.Since(startTime)

	// The input arrays travel on to the webhook layer; copy them through
	// the pooled buffers so the caller may reuse its slices.
	voltageCopy := copyThrough(&buffers.Voltage, job.Voltage)
	currentCopy := copyThrough(&buffers.Current, job.Current)

	analysis, ok := result.(models.AnalysisResult)
	if !ok {
		analysis = models.AnalysisResult{
			Status: "ERROR",
			Error:  "processor returned an unexpected result type",
		}
	}

	return models.WorkResult{
		ID:             job.ID,
		RequestID:      job.RequestID,
		BatchID:        job.BatchID,
		Iteration:      job.Iteration,
		Result:         analysis,
		ProcessingTime: processingTime,
		Success:        analysis.Status == models.StatusOK,
		Voltage:        voltageCopy,
		Current:        currentCopy,
	}
}

// copyThrough stages src in the pooled buffer and returns a fresh copy,
// growing the buffer only when the trace outgrows its capacity.
func copyThrough(buf *[]float64, src []float64) []float64 {
	if cap(*buf) < len(src) {
		newCap := len(src) + (len(src) >> 2) // +25% headroom
		if newCap < 1024 {
			newCap = 1024
		}
		*buf = make([]float64, len(src), newCap)
	} else {
		*buf = (*buf)[:len(src)]
	}
	copy(*buf, src)

	out := make([]float64, len(src))
	copy(out, *buf)
	return out
}

// webhookProcessor handles webhook requests asynchronously
func (p *Pool) webhookProcessor() {
	defer p.wg.Done()

	for {
		select {
		case item := <-p.webhookQueue:
			// Deliver asynchronously without blocking workers
			go p.sendWebhook(item)

		case <-p.shutdown:
			return
		}
	}
}

func (p *Pool) sendWebhook(item models.WebhookItem) {
	if p.sender == nil {
		log.Printf("No webhook sender configured, dropping webhook for %s", item.RequestID)
		return
	}
	prof := profiling.NewWebhookProfiler(item.RequestID)
	err := p.sender(item)
	prof.Finish(err == nil)
	if err != nil {
		log.Printf("Webhook delivery failed for %s: %v", item.RequestID, err)
	}
}

// SubmitJob submits a job to the worker pool
func (p *Pool) SubmitJob(job models.WorkItem) {
	select {
	case p.jobs <- job:
		// Job submitted successfully
	default:
		log.Printf("⚠️  Worker pool jobs channel full, job may be delayed")
		p.jobs <- job // Block until space available
	}
}

// GetResult retrieves a result from the worker pool (non-blocking)
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// QueueWebhook queues a webhook for async processing
func (p *Pool) QueueWebhook(item models.WebhookItem) {
	select {
	case p.webhookQueue <- item:
		// Webhook queued successfully
	default:
		log.Printf("⚠️  Webhook queue full, dropping webhook for %s", item.RequestID)
	}
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown() {
	log.Printf("🛑 Shutting down worker pool...")
	close(p.shutdown)
	p.wg.Wait()
	log.Printf("✅ Worker pool shutdown complete")
}
