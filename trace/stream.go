package trace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/vei-sim/vei/telemetry"
)

// StreamWorker is the single background worker that POSTs flushed trace
// records as JSON lines to a configured endpoint, per spec.md §4.3/§9. It
// reads from a bounded channel; Enqueue never blocks — when the channel is
// full the record is dropped to preserve the simulation's determinism and
// latency, exactly as the "async trace streaming" design note requires.
type StreamWorker struct {
	endpoint string
	client   *http.Client
	queue    chan any
	done     chan struct{}
	logger   telemetry.Logger

	closeOnce sync.Once
}

// DefaultQueueCapacity bounds the in-memory streaming queue.
const DefaultQueueCapacity = 256

// NewStreamWorker constructs and starts a worker posting to endpoint.
func NewStreamWorker(endpoint string, client *http.Client, logger telemetry.Logger) *StreamWorker {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	w := &StreamWorker{
		endpoint: endpoint,
		client:   client,
		queue:    make(chan any, DefaultQueueCapacity),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go w.run()
	return w
}

// Enqueue attempts a non-blocking send; on a full queue the record is
// dropped silently (overflow is part of the contract, not an error).
func (w *StreamWorker) Enqueue(record any) {
	select {
	case w.queue <- record:
	default:
	}
}

func (w *StreamWorker) run() {
	for rec := range w.queue {
		w.post(rec)
	}
	close(w.done)
}

func (w *StreamWorker) post(record any) {
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	resp, err := w.client.Post(w.endpoint, "application/json", bytes.NewReader(line))
	if err != nil {
		w.logger.Warn(nil, "trace: stream post failed", "err", err)
		return
	}
	resp.Body.Close()
}

// Close drains the queue and stops the worker, ensuring clean shutdown
// flushes remaining entries before returning.
func (w *StreamWorker) Close() {
	w.closeOnce.Do(func() {
		close(w.queue)
		<-w.done
	})
}
