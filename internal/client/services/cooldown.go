package services

import (
	"sync"
	"time"
)

// Cooldown is the advisory resend timer. It only throttles this client;
// the server enforces the real limit.
type Cooldown struct {
	mu     sync.Mutex
	period time.Duration
	until  time.Time
	now    func() time.Time
}

func NewCooldown(period time.Duration) *Cooldown {
	return &Cooldown{period: period, now: time.Now}
}

// Start (re)starts the timer from now.
func (c *Cooldown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = c.now().Add(c.period)
}

// Remaining is zero once the timer has run down.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.until.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}

func (c *Cooldown) Ready() bool {
	return c.Remaining() == 0
}
