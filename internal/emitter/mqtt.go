// Package emitter publishes emitted words to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
)

// QueueSize is the number of messages buffered while the broker is slow.
const QueueSize = 64

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt not connected")

// WordMessage is the payload published for every emitted word.
type WordMessage struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Word       string    `json:"word"`
	ClassIndex int       `json:"class_index"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// ExamplesMessage is the payload published when a class's example count changes.
type ExamplesMessage struct {
	Word       string `json:"word"`
	ClassIndex int    `json:"class_index"`
	Examples   int    `json:"examples"`
}

type message struct {
	topic   string
	payload []byte
}

// MQTTPublisher is a display that publishes words to an MQTT broker. Words
// are queued and published from its own goroutine so a slow broker never
// holds up the classification loop.
type MQTTPublisher struct {
	cfg    config.MQTTConfig
	client mqtt.Client
	logger *slog.Logger

	queue chan message
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	mu        sync.RWMutex
	published map[string]uint64 // count per topic
	dropped   uint64
	errors    uint64
	connected bool
}

// NewMQTTPublisher creates a disconnected publisher.
func NewMQTTPublisher(cfg config.MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTPublisher{
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan message, QueueSize),
		done:      make(chan struct{}),
		published: make(map[string]uint64),
	}
}

// Connect establishes the connection to the broker and starts publishing
// queued messages.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("mqtt connection established", "broker", p.cfg.Broker, "client_id", p.cfg.ClientID)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", p.cfg.Broker)
	}

	client := mqtt.NewClient(opts)

	p.logger.Info("connecting to mqtt broker", "broker", p.cfg.Broker)

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt connection aborted: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	p.start(client)
	return nil
}

// start begins publishing through client.
func (p *MQTTPublisher) start(client mqtt.Client) {
	p.client = client
	p.setConnected(client.IsConnected())

	p.wg.Add(1)
	go p.run()
}

func (p *MQTTPublisher) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case m := <-p.queue:
			if err := p.Publish(m.topic, m.payload); err != nil {
				p.logger.Warn("mqtt publish failed", "topic", m.topic, "error", err)
			}
		}
	}
}

// Publish publishes payload to topic and waits for the broker.
func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	if !p.isConnected() {
		p.countError()
		return ErrNotConnected
	}

	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	p.mu.Lock()
	p.published[topic]++
	p.mu.Unlock()

	p.logger.Debug("mqtt message published", "topic", topic, "size", len(payload))
	return nil
}

// ShowWord queues the word for publishing.
func (p *MQTTPublisher) ShowWord(t gesture.Translation) {
	payload, err := json.Marshal(WordMessage{
		ID:         t.ID,
		SessionID:  t.SessionID,
		Word:       t.Word(),
		ClassIndex: t.Class.Index,
		Confidence: t.Confidence,
		At:         t.At,
	})
	if err != nil {
		p.countError()
		return
	}
	p.enqueue(p.cfg.Topic, payload)
}

// ShowExampleCount queues the count for publishing on the examples subtopic.
func (p *MQTTPublisher) ShowExampleCount(class gesture.Class, count int) {
	payload, err := json.Marshal(ExamplesMessage{
		Word:       class.Label,
		ClassIndex: class.Index,
		Examples:   count,
	})
	if err != nil {
		p.countError()
		return
	}
	p.enqueue(p.ExamplesTopic(), payload)
}

// ExamplesTopic returns the topic example counts are published on.
func (p *MQTTPublisher) ExamplesTopic() string {
	return p.cfg.Topic + "/examples"
}

func (p *MQTTPublisher) enqueue(topic string, payload []byte) {
	select {
	case p.queue <- message{topic: topic, payload: payload}:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		p.logger.Warn("mqtt queue full, message dropped", "topic", topic)
	}
}

// Close stops publishing and disconnects from the broker. Queued messages
// that were not yet published are dropped.
func (p *MQTTPublisher) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()

		if p.client != nil && p.client.IsConnected() {
			p.client.Disconnect(250) // 250ms grace period
			p.logger.Info("mqtt disconnected")
		}
		p.setConnected(false)
	})
	return nil
}

// Stats contains publisher statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Dropped   uint64            `json:"dropped"`
	Errors    uint64            `json:"errors"`
}

// Stats returns publisher statistics
func (p *MQTTPublisher) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	published := make(map[string]uint64, len(p.published))
	for k, v := range p.published {
		published[k] = v
	}

	return Stats{
		Connected: p.connected,
		Published: published,
		Dropped:   p.dropped,
		Errors:    p.errors,
	}
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = v
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *MQTTPublisher) countError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors++
}
