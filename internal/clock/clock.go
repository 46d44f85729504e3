// Package clock converts instants to the civil time of the price zone and
// renders the 15-minute period labels used by PSE.
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	DefaultZone = "Europe/Warsaw"

	// PeriodLength is the settlement period a timestamp closes.
	PeriodLength = 15 * time.Minute
)

type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// New loads zone from the IANA database. An empty zone selects DefaultZone.
func New(zone string) (*Resolver, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	return &Resolver{loc: loc, now: time.Now}, nil
}

// WithNow returns a copy of r that reads the current instant from now.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	cp := *r
	cp.now = now
	return &cp
}

func (r *Resolver) Now() time.Time {
	return r.now()
}

// Local converts t to the resolver's zone using the offset in force on t's
// own calendar date.
func (r *Resolver) Local(t time.Time) time.Time {
	return t.In(r.loc)
}

// PeriodLabel renders the 15 minutes ending at t as "HH:MM - HH:MM".
func (r *Resolver) PeriodLabel(t time.Time) string {
	start := t.Add(-PeriodLength)
	return fmt.Sprintf("%s - %s", r.Local(start).Format("15:04"), r.Local(t).Format("15:04"))
}
