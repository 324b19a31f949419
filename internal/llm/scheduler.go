package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"yui/internal/logging"
)

// SlotScheduler bounds concurrent text-generation calls. Persona fan-outs
// may consult five voices at once while the provider allows fewer
// simultaneous requests; callers acquire a slot per call and release it as
// soon as the call settles.
type SlotScheduler struct {
	slots    chan struct{}
	maxSlots int

	totalCalls    int64
	totalWaitNs   int64
	currentlyBusy int32

	stopCh chan struct{}
}

// NewSlotScheduler creates a scheduler with the given slot count.
func NewSlotScheduler(maxConcurrent int) *SlotScheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &SlotScheduler{
		slots:    make(chan struct{}, maxConcurrent),
		maxSlots: maxConcurrent,
		stopCh:   make(chan struct{}),
	}
}

// Acquire blocks until a call slot is free, the context is cancelled, or
// the scheduler is stopped.
func (s *SlotScheduler) Acquire(ctx context.Context, caller string) error {
	waitStart := time.Now()
	select {
	case s.slots <- struct{}{}:
		wait := time.Since(waitStart)
		atomic.AddInt64(&s.totalWaitNs, int64(wait))
		atomic.AddInt32(&s.currentlyBusy, 1)
		if wait > 100*time.Millisecond {
			logging.API("slot acquired by %s after %v", caller, wait)
		}
		return nil
	case <-ctx.Done():
		logging.Get(logging.CategoryAPI).Warn("%s cancelled waiting for slot (waited %v)",
			caller, time.Since(waitStart))
		return ctx.Err()
	case <-s.stopCh:
		return fmt.Errorf("slot scheduler stopped")
	}
}

// Release frees a slot after a call settles.
func (s *SlotScheduler) Release(caller string) {
	select {
	case <-s.slots:
	default:
		logging.Get(logging.CategoryAPI).Error("%s released a slot it did not hold", caller)
		return
	}
	atomic.AddInt32(&s.currentlyBusy, -1)
	atomic.AddInt64(&s.totalCalls, 1)
}

// Stop shuts down the scheduler; pending acquires fail.
func (s *SlotScheduler) Stop() {
	close(s.stopCh)
}

// Metrics reports scheduler counters.
func (s *SlotScheduler) Metrics() SlotMetrics {
	return SlotMetrics{
		MaxSlots:    s.maxSlots,
		ActiveSlots: int(atomic.LoadInt32(&s.currentlyBusy)),
		TotalCalls:  atomic.LoadInt64(&s.totalCalls),
		TotalWaitNs: atomic.LoadInt64(&s.totalWaitNs),
	}
}

// SlotMetrics provides observability into scheduler load.
type SlotMetrics struct {
	MaxSlots    int
	ActiveSlots int
	TotalCalls  int64
	TotalWaitNs int64
}

func (m SlotMetrics) String() string {
	avgWait := time.Duration(0)
	if m.TotalCalls > 0 {
		avgWait = time.Duration(m.TotalWaitNs / m.TotalCalls)
	}
	return fmt.Sprintf("slots=%d/%d, calls=%d, avg_wait=%v",
		m.ActiveSlots, m.MaxSlots, m.TotalCalls, avgWait)
}

// ScheduledClient wraps a Client with slot acquisition and bounded retry.
// Implements Client so it can be injected transparently.
type ScheduledClient struct {
	Scheduler  *SlotScheduler
	Caller     string
	Client     Client
	MaxRetries int
}

var _ Client = (*ScheduledClient)(nil)

// Complete makes a scheduled call (single prompt).
func (c *ScheduledClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem makes a scheduled call with retries. A slot is held
// only for the duration of each attempt.
func (c *ScheduledClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	attempts := c.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.Scheduler.Acquire(ctx, c.Caller); err != nil {
			return "", fmt.Errorf("failed to acquire call slot: %w", err)
		}

		var (
			result string
			err    error
		)
		if systemPrompt == "" {
			result, err = c.Client.Complete(ctx, userPrompt)
		} else {
			result, err = c.Client.CompleteWithSystem(ctx, systemPrompt, userPrompt)
		}
		c.Scheduler.Release(c.Caller)

		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < attempts-1 {
			backoff := time.Duration(1<<attempt) * 200 * time.Millisecond
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
				logging.APIDebug("%s retrying after error (attempt %d/%d): %v",
					c.Caller, attempt+1, attempts, err)
			}
		}
	}

	return "", fmt.Errorf("all %d attempts failed, last error: %w", attempts, lastErr)
}
