package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned when the producer's buffer has no room left
var ErrQueueFull = errors.New("event queue full, event dropped")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerConfig configures a KafkaProducer
type ProducerConfig struct {
	Broker       string
	Topic        string
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

// KafkaProducer publishes events to Kafka through a worker pool
type KafkaProducer struct {
	writer       messageWriter
	topic        string
	eventChan    chan Event
	workerCount  int
	writeTimeout time.Duration
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
	log          *logrus.Entry
}

// NewKafkaProducer creates a new Kafka producer with worker pool
func NewKafkaProducer(cfg ProducerConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	return newProducer(writer, cfg)
}

func newProducer(writer messageWriter, cfg ProducerConfig) *KafkaProducer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	kp := &KafkaProducer{
		writer:       writer,
		topic:        cfg.Topic,
		eventChan:    make(chan Event, cfg.QueueSize),
		workerCount:  cfg.Workers,
		writeTimeout: cfg.WriteTimeout,
		shutdownChan: make(chan struct{}),
		log:          logrus.WithField("component", "kafka-producer"),
	}
	kp.startWorkers()
	return kp
}

// startWorkers starts the worker pool for async event processing
func (kp *KafkaProducer) startWorkers() {
	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.worker(i)
	}
	kp.log.Infof("Started %d event workers on topic %s", kp.workerCount, kp.topic)
}

func (kp *KafkaProducer) worker(id int) {
	defer kp.wg.Done()

	for {
		select {
		case event := <-kp.eventChan:
			kp.send(id, event)
		case <-kp.shutdownChan:
			// Drain what is already queued before exiting
			for {
				select {
				case event := <-kp.eventChan:
					kp.send(id, event)
				default:
					return
				}
			}
		}
	}
}

func (kp *KafkaProducer) send(worker int, event Event) {
	if err := kp.sendSync(event); err != nil {
		kp.log.WithFields(logrus.Fields{
			"worker":     worker,
			"event_id":   event.ID,
			"event_type": event.Type,
			"hostel_id":  event.HostelID,
		}).WithError(err).Error("Failed to send event")
	}
}

// Publish queues an event asynchronously (non-blocking)
func (kp *KafkaProducer) Publish(_ context.Context, event Event) error {
	select {
	case <-kp.shutdownChan:
		return fmt.Errorf("publish %s: producer closed", event.Type)
	default:
	}

	select {
	case kp.eventChan <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// sendSync writes one event to Kafka (called by workers)
func (kp *KafkaProducer) sendSync(event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: kp.topic,
		Key:   []byte(event.HostelID),
		Value: message,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "hostel_id", Value: []byte(event.HostelID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), kp.writeTimeout)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}
	return nil
}

// Close stops the workers after the queue is drained and closes the writer
func (kp *KafkaProducer) Close() error {
	var err error
	kp.closeOnce.Do(func() {
		kp.log.Info("Initiating graceful shutdown...")
		close(kp.shutdownChan)
		kp.wg.Wait()

		if cerr := kp.writer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close Kafka writer: %w", cerr)
			return
		}
		kp.log.Info("Graceful shutdown complete")
	})
	return err
}
