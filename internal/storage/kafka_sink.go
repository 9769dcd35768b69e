package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// MessageWriter is the part of kafka.Writer the sink needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaArtifactSink publishes each artifact as one message keyed by filename
type KafkaArtifactSink struct {
	writer MessageWriter
	runID  func() string
}

// NewKafkaArtifactSink creates a sink writing to topic on the given brokers
func NewKafkaArtifactSink(brokers []string, topic string, runID func() string) (*KafkaArtifactSink, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka sink needs brokers and a topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
	}
	return NewKafkaArtifactSinkWithWriter(writer, runID), nil
}

// NewKafkaArtifactSinkWithWriter wraps an existing writer
func NewKafkaArtifactSinkWithWriter(writer MessageWriter, runID func() string) *KafkaArtifactSink {
	return &KafkaArtifactSink{writer: writer, runID: runID}
}

// Name returns the sink name
func (s *KafkaArtifactSink) Name() string {
	return "kafka"
}

// Publish writes the artifact content with format and MIME type headers
func (s *KafkaArtifactSink) Publish(ctx context.Context, artifact models.Artifact) (string, error) {
	headers := []kafka.Header{
		{Key: "format", Value: []byte(artifact.Format)},
		{Key: "content-type", Value: []byte(artifact.MIMEType)},
	}
	if s.runID != nil {
		headers = append(headers, kafka.Header{Key: "run-id", Value: []byte(s.runID())})
	}

	err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(artifact.Filename),
		Value:   artifact.Content,
		Headers: headers,
		Time:    time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("kafka publish failed: %w", err)
	}
	return "kafka:" + artifact.Filename, nil
}

// Close flushes and closes the writer
func (s *KafkaArtifactSink) Close() error {
	return s.writer.Close()
}
