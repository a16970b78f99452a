package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/postpilot/content-system/internal/api/metrics"
	"github.com/postpilot/content-system/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 64
)

// Dispatcher routes inbound chat messages to a fixed set of workers using
// consistent hashing on the chat id. All messages from one user land on the
// same worker, so each user's interaction flow is processed strictly in order.
// Distinct users never block one another beyond shard collisions.
type Dispatcher struct {
	workers []chan ports.InboundMessage
	session ports.SessionService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, session ports.SessionService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.InboundMessage, numWorkers),
		session: session,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.InboundMessage, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a message to the worker responsible for its chat id.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(msg ports.InboundMessage) {
	idx := d.shardIndex(msg.ChatID)
	d.workers[idx] <- msg
	metrics.MessagesQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a chat id deterministically to a worker index.
func (d *Dispatcher) shardIndex(chatID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(chatID, 10)))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.InboundMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.MessagesQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
			if err := d.session.HandleMessage(ctx, msg); err != nil {
				metrics.MessagesErrorsTotal.Inc()
				d.log.Error().Err(err).
					Int64("chat_id", msg.ChatID).
					Int("worker_id", id).
					Msg("message processing failed")
				continue
			}
			metrics.MessagesProcessedTotal.Inc()
		}
	}
}
