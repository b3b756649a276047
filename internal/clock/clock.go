package clock

import (
	"fmt"
	"sync"
	"time"
)

// DefaultZone is the zone bookings are interpreted in when none is configured.
const DefaultZone = "Asia/Colombo"

// Clock provides the current time in the service zone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// System is a Clock backed by time.Now.
type System struct {
	loc *time.Location
}

// NewSystem creates a system clock for the named IANA zone.
func NewSystem(zone string) (*System, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", zone, err)
	}
	return &System{loc: loc}, nil
}

func (c *System) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *System) Location() *time.Location {
	return c.loc
}

// Fixed is a settable Clock for tests.
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFixed returns a clock frozen at now. The clock's location is now's location.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (c *Fixed) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *Fixed) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now.Location()
}

// Set moves the clock to t.
func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ Clock = (*System)(nil)
	_ Clock = (*Fixed)(nil)
)
