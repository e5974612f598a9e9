package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024                   // Ring size, oldest events are dropped past this
	MaxEventsPerSec    = 2000                   // Global rate limit
	MaxEventsPerCycle  = 120                    // Per-cycle rate limit per second
	BatchFlushSize     = 64                     // Events per batch write
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
)

// EventLog is a bounded, rate-limited match journal. Events are held in a
// ring for the API and flushed asynchronously to a JSONL file.
type EventLog struct {
	mu      sync.Mutex
	ring    [EventBufferSize]Event
	next    uint64 // Sequence of the next event
	flushed uint64 // Sequence up to which events reached the file

	globalLimiter *rate.Limiter
	cycleLimiters sync.Map // map[string]*rate.Limiter, keyed "matchID/cycleID"

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	fileMu sync.Mutex
	file   *os.File
	out    *bufio.Writer

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer. An empty path keeps events in memory only.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		el.file = file
		el.out = bufio.NewWriter(file)
	}

	el.running.Store(true)
	el.writerWg.Add(1)
	go el.writerLoop()
	return nil
}

// Stop flushes pending events and closes the file.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		defer el.fileMu.Unlock()
		if el.file != nil {
			el.out.Flush()
			el.file.Close()
			el.file = nil
		}
	})
}

// Emit records an event. Returns false if the log is stopped or the event
// was rate limited.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	// Per-cycle first so one noisy cycle cannot drain the global budget.
	if event.CycleID >= 0 && !el.cycleLimiter(event.MatchID, event.CycleID).Allow() {
		el.droppedCount.Add(1)
		return false
	}
	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.mu.Lock()
	event.Sequence = el.next
	el.ring[el.next%EventBufferSize] = event
	el.next++
	if el.next-el.flushed > EventBufferSize {
		// Writer fell a full ring behind; the oldest events are gone.
		el.droppedCount.Add(el.next - el.flushed - EventBufferSize)
		el.flushed = el.next - EventBufferSize
	}
	el.mu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, matchID string, tickNum uint64, cycleID int, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, matchID, tickNum, cycleID, payload))
}

func (el *EventLog) cycleLimiter(matchID string, cycleID int) *rate.Limiter {
	key := matchID + "/" + strconv.Itoa(cycleID)
	if l, ok := el.cycleLimiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := el.cycleLimiters.LoadOrStore(key, rate.NewLimiter(MaxEventsPerCycle, MaxEventsPerCycle/4))
	return actual.(*rate.Limiter)
}

// ForgetMatch drops the rate limiters of a finished match.
func (el *EventLog) ForgetMatch(matchID string) {
	prefix := matchID + "/"
	el.cycleLimiters.Range(func(key, _ interface{}) bool {
		if k := key.(string); len(k) > len(prefix) && k[:len(prefix)] == prefix {
			el.cycleLimiters.Delete(key)
		}
		return true
	})
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// collectBatch takes up to BatchFlushSize unflushed events.
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.flushed < el.next && len(batch) < BatchFlushSize {
		batch = append(batch, el.ring[el.flushed%EventBufferSize])
		el.flushed++
	}
	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.out == nil {
		return
	}
	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			el.droppedCount.Add(1)
		}
	}
	el.out.Flush()
}

// Recent returns up to n of the newest events, oldest first.
func (el *EventLog) Recent(n int) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n > EventBufferSize {
		n = EventBufferSize
	}
	if uint64(n) > el.next {
		n = int(el.next)
	}
	out := make([]Event, 0, n)
	for seq := el.next - uint64(n); seq < el.next; seq++ {
		out = append(out, el.ring[seq%EventBufferSize])
	}
	return out
}

// GetStats returns metrics for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.next - el.flushed
	el.mu.Unlock()

	return map[string]interface{}{
		"total":   el.GetTotalCount(),
		"dropped": el.GetDroppedCount(),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return el.droppedCount.Load()
}

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 {
	return el.totalCount.Load()
}
