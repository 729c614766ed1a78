package tasks

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"chat-relay/internal/store"

	"github.com/robfig/cron/v3"
)

// HealthMonitor pings the store on a schedule and remembers whether the
// last ping succeeded. Every store operation is a short network round
// trip, so this is the one place that turns a string of failures into a
// visible "service degraded" signal.
type HealthMonitor struct {
	store    store.Store
	cron     *cron.Cron
	failures int32
}

func NewHealthMonitor(st store.Store) *HealthMonitor {
	return &HealthMonitor{store: st}
}

func (m *HealthMonitor) Start() {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc("*/30 * * * * *", m.check)
	if err != nil {
		log.Printf("[WORKER] Error scheduling health check: %v", err)
		return
	}

	c.Start()
	m.cron = c
}

func (m *HealthMonitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.store.Ping(ctx); err != nil {
		n := atomic.AddInt32(&m.failures, 1)
		log.Printf("[WORKER] Store ping failed (%d consecutive): %v", n, err)
		return
	}
	if atomic.SwapInt32(&m.failures, 0) > 0 {
		log.Println("[WORKER] Store connection recovered")
	}
}

func (m *HealthMonitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// Healthy reports whether the most recent ping reached the store.
func (m *HealthMonitor) Healthy() bool {
	return atomic.LoadInt32(&m.failures) == 0
}
