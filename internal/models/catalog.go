package models

import (
	"fmt"
	"time"
)

// Product is a sellable menu item as the catalog describes it
type Product struct {
	ID               string     `json:"id" yaml:"id"`
	Name             string     `json:"name" yaml:"name"`
	CategoryID       string     `json:"category_id" yaml:"category"`
	BasePriceCents   int64      `json:"base_price_cents" yaml:"base_price_cents"`
	DoublePriceCents *int64     `json:"double_price_cents,omitempty" yaml:"double_price_cents"`
	Modifiers        []Modifier `json:"modifiers,omitempty" yaml:"modifiers"`
	Station          Station    `json:"station,omitempty" yaml:"-"`
	IsActive         bool       `json:"is_active" yaml:"active"`
}

// Modifier adjusts the unit price of a product
type Modifier struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	PriceDeltaCents int64  `json:"price_delta_cents" yaml:"price_delta_cents"`
}

// Modifier returns the active modifier with the given id.
func (p *Product) Modifier(id string) (Modifier, bool) {
	for _, m := range p.Modifiers {
		if m.ID == id {
			return m, true
		}
	}
	return Modifier{}, false
}

// Category groups products and names their default production station
type Category struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Station Station `json:"station" yaml:"station"`
}

// Combo is a bundle sold at a listed price
type Combo struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	ListedPriceCents int64            `json:"listed_price_cents" yaml:"price_cents"`
	Components       []ComboComponent `json:"components" yaml:"components"`
	IsActive         bool             `json:"is_active" yaml:"active"`
}

type ComboComponent struct {
	ProductID string `json:"product_id" yaml:"product"`
	Qty       int    `json:"qty" yaml:"qty"`
}

// TimeWindow limits a promotion to weekdays and a local time-of-day range.
// No weekdays means every day; Start == End means the whole day; End < Start wraps midnight.
type TimeWindow struct {
	Weekdays []time.Weekday `json:"weekdays,omitempty" yaml:"weekdays"`
	Start    string         `json:"start,omitempty" yaml:"start"`
	End      string         `json:"end,omitempty" yaml:"end"`
}

// Contains reports whether t (already in restaurant local time) falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	if len(w.Weekdays) > 0 {
		found := false
		for _, d := range w.Weekdays {
			if d == t.Weekday() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	start, err := parseClock(w.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(w.End)
	if err != nil {
		return false
	}
	if start == end {
		return true
	}

	now := t.Hour()*60 + t.Minute()
	if start < end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

// Validate rejects malformed clock values.
func (w TimeWindow) Validate() error {
	if _, err := parseClock(w.Start); err != nil {
		return err
	}
	_, err := parseClock(w.End)
	return err
}

func parseClock(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// PercentPromotion takes a percentage off the unit price of targeted products
type PercentPromotion struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Percent    int        `json:"percent" yaml:"percent"`
	ProductIDs []string   `json:"product_ids,omitempty" yaml:"products"`
	Window     TimeWindow `json:"window" yaml:"window"`
}

// TwoForOnePromotion waives every second unit of targeted products
type TwoForOnePromotion struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	ProductIDs []string   `json:"product_ids,omitempty" yaml:"products"`
	Window     TimeWindow `json:"window" yaml:"window"`
}

// Promotions is the promotion configuration in force.
type Promotions struct {
	Percent   []PercentPromotion   `json:"percent" yaml:"percent"`
	TwoForOne []TwoForOnePromotion `json:"two_for_one" yaml:"two_for_one"`
}

// Targets reports whether productID is covered by the target list. Empty means all products.
func Targets(productIDs []string, productID string) bool {
	if len(productIDs) == 0 {
		return true
	}
	for _, id := range productIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Coupon is an order-level discount code
type Coupon struct {
	ID             string     `json:"id" yaml:"id"`
	Code           string     `json:"code" yaml:"code"`
	PercentOff     *int       `json:"percent_off,omitempty" yaml:"percent_off"`
	AmountOffCents *int64     `json:"amount_off_cents,omitempty" yaml:"amount_off_cents"`
	ValidFrom      *time.Time `json:"valid_from,omitempty" yaml:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until,omitempty" yaml:"valid_until"`
	MaxUses        *int       `json:"max_uses,omitempty" yaml:"max_uses"`
	UsedCount      int        `json:"used_count" yaml:"used_count"`
	IsActive       bool       `json:"is_active" yaml:"active"`
}
