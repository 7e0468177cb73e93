package telemetry

import (
	"sync"

	"github.com/rs/zerolog"
)

// logSinkBuffer is the number of events held while the writer goroutine
// catches up. Events past this watermark are dropped, not queued.
const logSinkBuffer = 256

// LogSink writes events as JSON lines through a zerolog logger. Emission is
// decoupled from writing by a bounded channel so a slow or blocked writer
// can never stall the dispatcher.
type LogSink struct {
	logger  zerolog.Logger
	ch      chan Event
	done    chan struct{}
	dropped int64
	mu      sync.Mutex
	closed  bool
}

// NewLogSink starts a LogSink writing through the given logger. Callers own
// the logger's output (stderr by convention).
func NewLogSink(logger zerolog.Logger) *LogSink {
	s := &LogSink{
		logger: logger,
		ch:     make(chan Event, logSinkBuffer),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Emit queues the event for writing. If the buffer is full the event is
// counted as dropped and discarded. The closed check and the send share
// one critical section so an Emit racing Close can never hit a closed
// channel.
func (s *LogSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- ev:
	default:
		s.dropped++
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (s *LogSink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close flushes buffered events and stops the writer goroutine. The
// channel is closed under the same mutex Emit sends under.
func (s *LogSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	<-s.done
}

func (s *LogSink) loop() {
	defer close(s.done)
	for ev := range s.ch {
		e := s.logger.Info().
			Str("kind", string(ev.Kind)).
			Time("ts", ev.TS)
		if ev.Instance != "" {
			e = e.Str("instance", ev.Instance)
		}
		if ev.Job != "" {
			e = e.Str("job", ev.Job)
		}
		if len(ev.Details) > 0 {
			e = e.Interface("details", ev.Details)
		}
		e.Msg("telemetry")
	}
}
