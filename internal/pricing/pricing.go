// Package pricing computes unit prices, promotion effects and line totals.
// Every function is pure: promotions and the evaluation time are passed in.
package pricing

import (
	"sort"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/models"
)

// Line is the priced result for one order line.
type Line struct {
	UnitPriceCents      int64
	ModifiersTotalCents int64
	GrossCents          int64
	DiscountCents       int64
	LineTotalCents      int64
	Snapshot            models.ItemSnapshot
}

// UnitPrice returns the undiscounted price of one unit configured as sel.
func UnitPrice(p *models.Product, sel models.Selection) (int64, []models.ModifierSnapshot, error) {
	price := p.BasePriceCents

	switch sel.Size {
	case "", models.SizeSingle:
	case models.SizeDouble:
		if p.DoublePriceCents == nil {
			return 0, nil, apperr.New(apperr.CodeInvalidConfiguration, "product %s has no double size", p.ID)
		}
		price = *p.DoublePriceCents
	default:
		return 0, nil, apperr.New(apperr.CodeInvalidConfiguration, "unknown size %q", sel.Size)
	}

	seen := make(map[string]bool, len(sel.ModifierIDs))
	mods := make([]models.ModifierSnapshot, 0, len(sel.ModifierIDs))
	for _, id := range sel.ModifierIDs {
		if seen[id] {
			return 0, nil, apperr.New(apperr.CodeInvalidConfiguration, "modifier %s selected twice", id)
		}
		seen[id] = true

		m, ok := p.Modifier(id)
		if !ok {
			return 0, nil, apperr.New(apperr.CodeInvalidConfiguration, "modifier %s is not available for product %s", id, p.ID)
		}
		price += m.PriceDeltaCents
		mods = append(mods, models.ModifierSnapshot{ID: m.ID, Name: m.Name, PriceDeltaCents: m.PriceDeltaCents})
	}

	return price, mods, nil
}

// ApplyPercent returns price reduced by percent, rounded half away from zero.
func ApplyPercent(price int64, percent int) int64 {
	if percent <= 0 {
		return price
	}
	if percent >= 100 {
		return 0
	}
	return roundDiv(price*int64(100-percent), 100)
}

// roundDiv divides n by a positive d, rounding half away from zero.
func roundDiv(n, d int64) int64 {
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}

// BestPercent returns the highest percentage promotion active for the product at now.
// Percentages never stack.
func BestPercent(promos models.Promotions, productID string, now time.Time) (int, string) {
	best, bestID := 0, ""
	for _, p := range promos.Percent {
		if p.Percent <= 0 || !models.Targets(p.ProductIDs, productID) || !p.Window.Contains(now) {
			continue
		}
		if p.Percent > best {
			best, bestID = p.Percent, p.ID
		}
	}
	if best > 100 {
		best = 100
	}
	return best, bestID
}

// ActiveTwoForOne returns the id of a 2-for-1 promotion covering the product at now.
func ActiveTwoForOne(promos models.Promotions, productID string, now time.Time) (string, bool) {
	for _, p := range promos.TwoForOne {
		if models.Targets(p.ProductIDs, productID) && p.Window.Contains(now) {
			return p.ID, true
		}
	}
	return "", false
}

type unit struct {
	sel       models.Selection
	mods      []models.ModifierSnapshot
	gross     int64
	effective int64
	waived    bool
}

// QuoteProduct prices a product line with one selection per unit.
// The percentage promotion applies per unit first, then 2-for-1 waives the
// floor(qty/2) highest priced units.
func QuoteProduct(p *models.Product, sels []models.Selection, promos models.Promotions, now time.Time) (Line, error) {
	if len(sels) == 0 {
		return Line{}, apperr.Validation("qty", "must be at least 1")
	}

	percent, percentID := BestPercent(promos, p.ID, now)
	twoForOneID, twoForOne := ActiveTwoForOne(promos, p.ID, now)

	units := make([]*unit, len(sels))
	mixed := false
	for i, sel := range sels {
		gross, mods, err := UnitPrice(p, sel)
		if err != nil {
			return Line{}, err
		}
		u := &unit{sel: sel, mods: mods, gross: gross, effective: ApplyPercent(gross, percent)}
		units[i] = u
		if i > 0 && (normaliseSize(sel.Size) != normaliseSize(sels[0].Size) || !sameModifiers(u.mods, units[0].mods)) {
			mixed = true
		}
	}

	var applied []string
	if percentID != "" {
		applied = append(applied, percentID)
	}

	if twoForOne && len(units) >= 2 {
		order := make([]*unit, len(units))
		copy(order, units)
		sort.SliceStable(order, func(i, j int) bool { return order[i].effective > order[j].effective })
		for _, u := range order[:len(units)/2] {
			u.waived = true
		}
		applied = append(applied, twoForOneID)
	}

	line := Line{}
	var maxEffective int64
	for _, u := range units {
		line.GrossCents += u.gross
		for _, m := range u.mods {
			line.ModifiersTotalCents += m.PriceDeltaCents
		}
		if !u.waived {
			line.LineTotalCents += u.effective
		}
		if u.effective > maxEffective {
			maxEffective = u.effective
		}
	}
	line.UnitPriceCents = maxEffective
	line.DiscountCents = line.GrossCents - line.LineTotalCents

	line.Snapshot = models.ItemSnapshot{
		Version:    models.ItemSnapshotVersion,
		Promotions: applied,
	}
	if mixed {
		for _, u := range units {
			line.Snapshot.Units = append(line.Snapshot.Units, models.UnitSnapshot{
				Size:           normaliseSize(u.sel.Size),
				Modifiers:      u.mods,
				UnitPriceCents: u.effective,
				Waived:         u.waived,
			})
		}
	} else {
		line.Snapshot.Size = normaliseSize(units[0].sel.Size)
		line.Snapshot.Modifiers = units[0].mods
	}

	return line, nil
}

// QuoteCombo prices a combo line at its listed price. Promotions never apply to combos.
// components are the catalog products of the combo, used only for the savings figure.
func QuoteCombo(c *models.Combo, components map[string]*models.Product, qty int) (Line, int64) {
	line := Line{
		UnitPriceCents: c.ListedPriceCents,
		GrossCents:     c.ListedPriceCents * int64(qty),
		LineTotalCents: c.ListedPriceCents * int64(qty),
		Snapshot:       models.ItemSnapshot{Version: models.ItemSnapshotVersion},
	}

	var separately int64
	for _, comp := range c.Components {
		p, ok := components[comp.ProductID]
		if !ok {
			continue
		}
		separately += p.BasePriceCents * int64(comp.Qty)
		line.Snapshot.ComboComponents = append(line.Snapshot.ComboComponents, models.ComboComponentRef{
			ProductID: p.ID,
			Name:      p.Name,
			Qty:       comp.Qty,
			Station:   p.Station,
		})
	}

	savings := separately - c.ListedPriceCents
	if savings < 0 {
		savings = 0
	}
	return line, savings
}

// CheckCoupon verifies that the coupon may be redeemed at now.
func CheckCoupon(c *models.Coupon, now time.Time) error {
	if !c.IsActive {
		return apperr.New(apperr.CodeCouponInvalid, "coupon %s is not active", c.Code)
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return apperr.New(apperr.CodeCouponInvalid, "coupon %s is not valid yet", c.Code)
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return apperr.New(apperr.CodeCouponInvalid, "coupon %s has expired", c.Code)
	}
	if c.PercentOff == nil && c.AmountOffCents == nil {
		return apperr.New(apperr.CodeCouponInvalid, "coupon %s has no discount", c.Code)
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return apperr.New(apperr.CodeCouponExhausted, "coupon %s has reached its usage limit", c.Code)
	}
	return nil
}

// CouponDiscount returns the amount the coupon takes off subtotal, never more than subtotal.
func CouponDiscount(c *models.Coupon, subtotal int64) int64 {
	var off int64
	switch {
	case c.PercentOff != nil:
		off = roundDiv(subtotal*int64(*c.PercentOff), 100)
	case c.AmountOffCents != nil:
		off = *c.AmountOffCents
	}
	return clamp(off, 0, subtotal)
}

// Totals combines the order-level amounts. Discount is capped at the subtotal.
func Totals(subtotal, discount, tip int64) (cappedDiscount, total int64) {
	cappedDiscount = clamp(discount, 0, subtotal)
	return cappedDiscount, subtotal - cappedDiscount + tip
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func normaliseSize(s models.Size) models.Size {
	if s == "" {
		return models.SizeSingle
	}
	return s
}

func sameModifiers(a, b []models.ModifierSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]bool, len(a))
	for _, m := range a {
		ids[m.ID] = true
	}
	for _, m := range b {
		if !ids[m.ID] {
			return false
		}
	}
	return true
}
