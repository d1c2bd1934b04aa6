package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// Event is one progress notification. Events are advisory; publication never
// blocks or fails the pipeline.
type Event struct {
	JobID     string    `json:"job_id"`
	Stage     Stage     `json:"stage"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives progress events.
type Sink interface {
	Publish(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event Event)

func (f SinkFunc) Publish(event Event) { f(event) }

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Publish(event Event) {
	for _, s := range m {
		s.Publish(event)
	}
}

// LogSink publishes progress events to a structured logger.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink wraps a logger as a progress sink.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(event Event) {
	s.log.Info("job progress",
		zap.String("job_id", event.JobID),
		zap.String("stage", string(event.Stage)),
		zap.Int("progress", event.Progress),
		zap.String("message", event.Message))
}
