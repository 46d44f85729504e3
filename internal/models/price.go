package models

import "time"

// PriceRecord is one row of pse_energy_prices. Nil components are NULL in
// the store.
type PriceRecord struct {
	DTime        time.Time `json:"dtime"`
	Period       *string   `json:"period,omitempty"`
	CENCost      *float64  `json:"cen_cost"`
	CSDACPLN     *float64  `json:"csdac_pln"`
	CORCost      *float64  `json:"cor_cost"`
	CEBPPCost    *float64  `json:"ceb_pp_cost"`
	CEBSRCost    *float64  `json:"ceb_sr_cost,omitempty"`
	Balance      *float64  `json:"balance,omitempty"`
	BalancePower *float64  `json:"balance_power,omitempty"`
}

// IsComplete reports whether the tariff, settlement and fee components are
// all known.
func (p *PriceRecord) IsComplete() bool {
	return p.CENCost != nil && p.CORCost != nil && p.CEBPPCost != nil
}

// HasForecast reports whether the record carries a CSDAC spot forecast.
func (p *PriceRecord) HasForecast() bool {
	return p.CSDACPLN != nil
}

// StoredPeriod returns the period label persisted with the row, if any.
func (p *PriceRecord) StoredPeriod() (string, bool) {
	if p.Period == nil || *p.Period == "" {
		return "", false
	}
	return *p.Period, true
}

// CurrentPrice is the reconciled view served by /api/current. The complete
// triplet and the forecast may come from different timestamps.
type CurrentPrice struct {
	DTime     *time.Time `json:"dtime"`
	Period    *string    `json:"period"`
	CENCost   *float64   `json:"cen_cost"`
	CORCost   *float64   `json:"cor_cost"`
	CEBPPCost *float64   `json:"ceb_pp_cost"`
	CENChange float64    `json:"cen_change"`

	CSDACDTime  *time.Time `json:"csdac_dtime"`
	CSDACPeriod *string    `json:"csdac_period"`
	CSDACPLN    *float64   `json:"csdac_pln"`

	Cached bool `json:"cached"`
}

type History struct {
	Hours  int           `json:"hours"`
	Data   []PriceRecord `json:"data"`
	Cached bool          `json:"cached"`
}

// Stats aggregates cen_cost over a trailing window. MinTime and MaxTime are
// the most recent timestamps at which the extremes occurred.
type Stats struct {
	Count       int       `json:"count"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Avg         float64   `json:"avg"`
	MinTime     time.Time `json:"min_time"`
	MaxTime     time.Time `json:"max_time"`
	WindowHours int       `json:"window_hours"`
	Timestamp   time.Time `json:"timestamp"`
	Cached      bool      `json:"cached"`
}
