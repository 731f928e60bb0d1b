package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/whiteboard/internal/clock"
)

// CollectorConfig holds the two garbage collection policies.
type CollectorConfig struct {
	// EmptyRoomTTL is how long a room may stay empty after its last user
	// leaves before it is reaped.
	EmptyRoomTTL time.Duration
	// StaleRoomAge is the idle age past which the periodic sweep deletes an
	// empty room.
	StaleRoomAge time.Duration
	// SweepInterval is how often the sweep runs.
	SweepInterval time.Duration
}

// DefaultCollectorConfig returns 24h / 48h / hourly.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		EmptyRoomTTL:  24 * time.Hour,
		StaleRoomAge:  48 * time.Hour,
		SweepInterval: time.Hour,
	}
}

// Collector reclaims abandoned rooms.
//
// TWO INDEPENDENT POLICIES:
//  1. Deferred reap: when a room empties, a one-shot timer fires after
//     EmptyRoomTTL and deletes the room if it is still empty then.
//  2. Periodic sweep: every SweepInterval, delete rooms that are empty and
//     idle for longer than StaleRoomAge.
//
// Both re-check emptiness inside the registry lock right before deleting,
// so they can overlap with each other and with rejoins without harm.
type Collector struct {
	registry *Registry
	config   CollectorConfig
	clock    clock.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*clock.Timer

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewCollector subscribes to the registry's empty-room notifications. The
// sweep loop does not run until Start.
func NewCollector(registry *Registry, cfg CollectorConfig, clk clock.Clock, logger *slog.Logger) *Collector {
	c := &Collector{
		registry: registry,
		config:   cfg,
		clock:    clk,
		logger:   logger,
		timers:   make(map[string]*clock.Timer),
		done:     make(chan struct{}),
	}
	registry.OnRoomEmptied(c.RoomEmptied)
	return c
}

// Start launches the periodic sweep in the background.
func (c *Collector) Start() {
	c.startOnce.Do(func() {
		c.logger.Info("starting room collector",
			slog.Duration("emptyRoomTTL", c.config.EmptyRoomTTL),
			slog.Duration("staleRoomAge", c.config.StaleRoomAge),
			slog.Duration("sweepInterval", c.config.SweepInterval),
		)
		ticker := c.clock.NewTicker(c.config.SweepInterval)
		c.wg.Add(1)
		go c.loop(ticker)
	})
}

// Stop ends the sweep loop and cancels every pending reap. Safe to call
// more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("shutting down room collector")
		close(c.done)
		c.wg.Wait()

		c.mu.Lock()
		defer c.mu.Unlock()
		for id, t := range c.timers {
			t.Stop()
			delete(c.timers, id)
		}
	})
}

// RoomEmptied schedules a deferred reap. A later empty transition for the
// same room replaces the pending timer.
func (c *Collector) RoomEmptied(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
	}

	if prev, ok := c.timers[roomID]; ok {
		prev.Stop()
	}
	var t *clock.Timer
	t = c.clock.AfterFunc(c.config.EmptyRoomTTL, func() {
		c.mu.Lock()
		if c.timers[roomID] == t {
			delete(c.timers, roomID)
		}
		c.mu.Unlock()

		if c.registry.DeleteIfEmpty(roomID) {
			c.logger.Info("cleaned up empty room", slog.String("roomId", roomID))
		}
	})
	c.timers[roomID] = t
}

// Sweep runs the stale-room policy once and returns the deleted ids.
func (c *Collector) Sweep() []string {
	deleted := c.registry.SweepStale(c.config.StaleRoomAge)
	for _, id := range deleted {
		c.logger.Info("cleaned up old room", slog.String("roomId", id))
	}
	return deleted
}

// Pending is the number of scheduled reaps.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Collector) loop(ticker *clock.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
