// Package stats counts wizard activity for the operator digest.
package stats

import (
	"fmt"
	"strings"
	"sync/atomic"
)

type Counters struct {
	sessions    atomic.Int64
	generations atomic.Int64
	throttled   atomic.Int64
	failures    atomic.Int64
	resets      atomic.Int64
	feedback    atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SessionsStarted  int64
	Generations      int64
	Throttled        int64
	BackendFailures  int64
	NavigationResets int64
	Feedback         int64
}

func New() *Counters { return &Counters{} }

func (c *Counters) SessionStarted()  { c.sessions.Add(1) }
func (c *Counters) Generated()       { c.generations.Add(1) }
func (c *Counters) Throttle()        { c.throttled.Add(1) }
func (c *Counters) BackendFailed()   { c.failures.Add(1) }
func (c *Counters) NavigationReset() { c.resets.Add(1) }
func (c *Counters) FeedbackSent()    { c.feedback.Add(1) }

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		SessionsStarted:  c.sessions.Load(),
		Generations:      c.generations.Load(),
		Throttled:        c.throttled.Load(),
		BackendFailures:  c.failures.Load(),
		NavigationResets: c.resets.Load(),
		Feedback:         c.feedback.Load(),
	}
}

// Drain returns the counters and zeroes them.
func (c *Counters) Drain() Snapshot {
	return Snapshot{
		SessionsStarted:  c.sessions.Swap(0),
		Generations:      c.generations.Swap(0),
		Throttled:        c.throttled.Swap(0),
		BackendFailures:  c.failures.Swap(0),
		NavigationResets: c.resets.Swap(0),
		Feedback:         c.feedback.Swap(0),
	}
}

// Report renders s as the operator digest text.
func (s Snapshot) Report() string {
	var b strings.Builder
	b.WriteString("📊 Статистика\n")
	fmt.Fprintf(&b, "Новых сессий: %d\n", s.SessionsStarted)
	fmt.Fprintf(&b, "Генераций: %d\n", s.Generations)
	fmt.Fprintf(&b, "Отклонено лимитом: %d\n", s.Throttled)
	fmt.Fprintf(&b, "Ошибок генерации: %d\n", s.BackendFailures)
	fmt.Fprintf(&b, "Сбросов навигации: %d\n", s.NavigationResets)
	fmt.Fprintf(&b, "Отзывов: %d", s.Feedback)
	return b.String()
}
