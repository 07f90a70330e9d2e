package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/lyra/pkg/adapters/synthesis"
	"github.com/harunnryd/lyra/pkg/errorsx"
	"github.com/harunnryd/lyra/pkg/metrics"
	"github.com/harunnryd/lyra/pkg/resilience"
)

const defaultQueueDepth = 64

// slotResult is the outcome of one reply slot: either synthesized audio or
// a drop.
type slotResult struct {
	audio  []byte
	drop   bool
	reason string
}

// DeliveryQueueConfig configures a DeliveryQueue.
type DeliveryQueueConfig struct {
	StreamID    string
	Synthesizer synthesis.Synthesizer
	// Send writes one synthesized clip to the transport. Required.
	Send func(audio []byte) error
	// Depth bounds the number of reserved-but-unsent slots.
	Depth int
	// MinSendGap, when positive, spaces consecutive sends apart to respect
	// downstream real-time playback.
	MinSendGap time.Duration
	Observer   metrics.Observer
	Logger     *slog.Logger
}

// DeliveryQueue serializes synthesized replies onto the transport in
// enqueue order, regardless of the order their synthesis calls complete.
// Each Enqueue reserves the next slot immediately and starts synthesis in
// its own goroutine; a single sender goroutine drains slots strictly FIFO,
// waiting for each slot to resolve before touching the next. A failed
// synthesis marks its slot as a drop and never blocks later slots.
type DeliveryQueue struct {
	cfg     DeliveryQueueConfig
	slots   chan chan slotResult
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup
}

func NewDeliveryQueue(cfg DeliveryQueueConfig) *DeliveryQueue {
	if cfg.Depth <= 0 {
		cfg.Depth = defaultQueueDepth
	}
	if cfg.Observer == nil {
		cfg.Observer = metrics.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryQueue{
		cfg:     cfg,
		slots:   make(chan chan slotResult, cfg.Depth),
		retry:   resilience.NewRetryPolicy(2, 200*time.Millisecond),
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
		logger:  logger,
	}
}

// Start launches the sender goroutine. Must be called once before Enqueue.
func (q *DeliveryQueue) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.senderLoop()
}

// Enqueue reserves the next delivery slot for text and starts its
// synthesis. Fire-and-forget: ordering and failure handling are internal.
func (q *DeliveryQueue) Enqueue(text string) {
	if q.closed.Load() || text == "" {
		return
	}
	slot := make(chan slotResult, 1)
	select {
	case q.slots <- slot:
	default:
		q.logger.Warn("reply_queue_full",
			"stream_id", q.cfg.StreamID)
		return
	}
	q.record("reply_enqueued")
	go q.synthesize(slot, text)
}

func (q *DeliveryQueue) synthesize(slot chan slotResult, text string) {
	if !q.breaker.Allow() {
		slot <- slotResult{drop: true, reason: "circuit_open"}
		return
	}
	audio, err := q.cfg.Synthesizer.Synthesize(q.ctx, text)
	if err != nil {
		reason := errorsx.ReasonSynthesize
		if resilience.IsRateLimit(err) {
			reason = errorsx.ReasonSynthesizeRateLimit
		}
		err = errorsx.Wrap(err, reason)
		q.breaker.OnError(err)
		q.logger.Error("synthesis_error",
			"stream_id", q.cfg.StreamID,
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
		slot <- slotResult{drop: true, reason: string(reason)}
		return
	}
	q.breaker.OnSuccess()
	slot <- slotResult{audio: audio}
}

func (q *DeliveryQueue) senderLoop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case slot := <-q.slots:
			var res slotResult
			select {
			case <-q.ctx.Done():
				return
			case res = <-slot:
			}
			if res.drop {
				q.logger.Info("reply_slot_dropped",
					"stream_id", q.cfg.StreamID,
					"reason", res.reason)
				q.record("reply_dropped")
				continue
			}
			err := q.retry.Do(func() error {
				return q.cfg.Send(res.audio)
			})
			if err != nil {
				q.logger.Error("reply_send_error",
					"stream_id", q.cfg.StreamID,
					"reason_code", string(errorsx.ReasonTransportSend),
					"error", err.Error())
				continue
			}
			q.record("reply_sent")
			if q.cfg.MinSendGap > 0 {
				select {
				case <-q.ctx.Done():
					return
				case <-time.After(q.cfg.MinSendGap):
				}
			}
		}
	}
}

// Close stops the sender; pending slots are abandoned and in-flight
// synthesis results discarded. Idempotent.
func (q *DeliveryQueue) Close() {
	if !q.closed.CompareAndSwap(false, true) {
		return
	}
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

func (q *DeliveryQueue) record(name string) {
	q.cfg.Observer.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{"stream_id": q.cfg.StreamID},
	})
}
