// Package hitevents publishes computed-curve events to Kafka. Publishing
// never blocks the request path: events are dropped when the queue is full.
package hitevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
)

type Event struct {
	Edition        string    `json:"edition"`
	Region         string    `json:"region"`
	SpectralPeriod string    `json:"spectralPeriod"`
	Vs30           string    `json:"vs30"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	H3Cell         string    `json:"h3Cell,omitempty"`
	Topology       string    `json:"topology"`
	TS             time.Time `json:"ts"`
}

// Sink receives events. The hazard service depends on this, not on Kafka.
type Sink interface {
	Publish(ev Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Cell returns the H3 cell containing the point at the given resolution.
func Cell(lat, lon float64, res int) (string, error) {
	if res < 0 || res > 15 {
		return "", fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	c, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for (%g, %g): %w", lat, lon, err)
	}
	return c.String(), nil
}

// NewEvent builds the event for one computed curve. A point H3 cannot index
// yields an event without a cell.
func NewEvent(meta model.CurveMetadata, topology string, res int) Event {
	cell, _ := Cell(meta.Latitude, meta.Longitude, res)
	return Event{
		Edition:        meta.Edition,
		Region:         meta.Region,
		SpectralPeriod: meta.SpectralPeriod,
		Vs30:           meta.Vs30,
		Latitude:       meta.Latitude,
		Longitude:      meta.Longitude,
		H3Cell:         cell,
		Topology:       topology,
		TS:             meta.Date,
	}
}

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	dropped atomic.Uint64
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("hitevents: create async producer: %w", err)
	}

	p := newPublisher(prod, topic, queueSize, log)
	p.start()
	return p, nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     log.With("component", "hitevents"),
		stopped: make(chan struct{}),
	}
}

func (p *Publisher) start() {
	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("marshal error", "err", err)
				continue
			}
			msg := &sarama.ProducerMessage{
				Topic: p.topic,
				Value: sarama.ByteEncoder(b),
			}
			// keyed by cell so events for one area land on one partition
			if ev.H3Cell != "" {
				msg.Key = sarama.StringEncoder(ev.H3Cell)
			}
			p.prod.Input() <- msg
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("producer error", "err", err)
			}
		}
	}()
}

func (p *Publisher) Publish(ev Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
		observability.IncHitEventDropped()
	}
}

// Dropped reports how many events were discarded on a full queue.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Close drains queued events into the producer and closes it.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()

		<-p.stopped
		if cerr := p.prod.Close(); cerr != nil {
			err = fmt.Errorf("hitevents: close producer: %w", cerr)
		}
	})
	return err
}
