package calendar

import (
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// SessionConfig declares a named trading session.
type SessionConfig struct {
	ID         string `mapstructure:"id"`
	Timezone   string `mapstructure:"timezone"`
	Open       string `mapstructure:"open"`
	Close      string `mapstructure:"close"`
	AlwaysOpen bool   `mapstructure:"always_open"`
	Holidays   string `mapstructure:"holidays"`
}

// SessionState is a point-in-time view of one session.
type SessionState struct {
	Open      bool   `json:"open"`
	LocalTime string `json:"local_time"`
	Weekday   string `json:"weekday"`
}

type session struct {
	cfg      SessionConfig
	loc      *time.Location
	holidays *cal.Calendar
}

// Calendar answers session-open questions for a fixed set of sessions.
// The holiday sets are built once at construction and never mutated.
type Calendar struct {
	sessions map[string]session
	order    []string
}

// New builds a Calendar from session configs. Unknown holiday calendars and
// bad timezones are startup errors.
func New(configs []SessionConfig) (*Calendar, error) {
	c := &Calendar{sessions: make(map[string]session, len(configs))}
	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("session id is required")
		}
		s := session{cfg: cfg}

		if !cfg.AlwaysOpen {
			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return nil, fmt.Errorf("session %s: load timezone %q: %w", cfg.ID, cfg.Timezone, err)
			}
			s.loc = loc

			if err := validateClock(cfg.Open); err != nil {
				return nil, fmt.Errorf("session %s: open: %w", cfg.ID, err)
			}
			if err := validateClock(cfg.Close); err != nil {
				return nil, fmt.Errorf("session %s: close: %w", cfg.ID, err)
			}

			hc, err := holidayCalendar(cfg.Holidays)
			if err != nil {
				return nil, fmt.Errorf("session %s: %w", cfg.ID, err)
			}
			s.holidays = hc
		}

		if _, dup := c.sessions[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate session id %q", cfg.ID)
		}
		c.sessions[cfg.ID] = s
		c.order = append(c.order, cfg.ID)
	}
	return c, nil
}

func holidayCalendar(name string) (*cal.Calendar, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "us":
		hc := &cal.Calendar{}
		hc.Cacheable = true
		hc.AddHoliday(us.Holidays...)
		return hc, nil
	default:
		return nil, fmt.Errorf("unknown holiday calendar %q", name)
	}
}

func validateClock(v string) error {
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("invalid clock value %q", v)
	}
	return nil
}

// IsSessionOpen reports whether the session trades at the given instant.
// Unknown sessions are treated as closed.
func (c *Calendar) IsSessionOpen(id string, at time.Time) bool {
	s, ok := c.sessions[id]
	if !ok {
		return false
	}
	return s.openAt(at)
}

// AnyOpen reports whether any of the listed sessions is open. An empty list
// means no session dependency and returns true.
func (c *Calendar) AnyOpen(ids []string, at time.Time) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if c.IsSessionOpen(id, at) {
			return true
		}
	}
	return false
}

// Status returns the point-in-time state of every configured session. It is
// a pure read recomputed on each call.
func (c *Calendar) Status(at time.Time) map[string]SessionState {
	status := make(map[string]SessionState, len(c.sessions))
	for id, s := range c.sessions {
		// Always-open sessions have no venue timezone; report UTC so the
		// output does not depend on the zone the caller's clock carries.
		local := at.UTC()
		if s.loc != nil {
			local = at.In(s.loc)
		}
		status[id] = SessionState{
			Open:      s.openAt(at),
			LocalTime: local.Format("15:04"),
			Weekday:   local.Weekday().String(),
		}
	}
	return status
}

// SessionIDs lists the configured session ids in declaration order.
func (c *Calendar) SessionIDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

func (s session) openAt(at time.Time) bool {
	if s.cfg.AlwaysOpen {
		return true
	}

	local := at.In(s.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	if s.holidays != nil {
		actual, observed, _ := s.holidays.IsHoliday(local)
		if actual || observed {
			return false
		}
	}

	// Inclusive bounds, matched on the wall clock like the venue publishes them.
	hhmm := local.Format("15:04")
	return s.cfg.Open <= hhmm && hhmm <= s.cfg.Close
}
