package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/models"
)

func ptr[T any](v T) *T { return &v }

var now = time.Date(2024, 6, 5, 16, 0, 0, 0, time.UTC) // Wednesday

func burger() *models.Product {
	return &models.Product{
		ID:               "burger",
		Name:             "Burger",
		BasePriceCents:   1000,
		DoublePriceCents: ptr(int64(1500)),
		Modifiers: []models.Modifier{
			{ID: "cheese", Name: "Extra cheese", PriceDeltaCents: 200},
			{ID: "bacon", Name: "Bacon", PriceDeltaCents: 300},
		},
		Station:  models.StationGrill,
		IsActive: true,
	}
}

func repeat(sel models.Selection, n int) []models.Selection {
	out := make([]models.Selection, n)
	for i := range out {
		out[i] = sel
	}
	return out
}

var doubleCheese = models.Selection{Size: models.SizeDouble, ModifierIDs: []string{"cheese"}}

func TestQuoteProduct_NoPromotions(t *testing.T) {
	line, err := QuoteProduct(burger(), repeat(doubleCheese, 3), models.Promotions{}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(1700), line.UnitPriceCents)
	assert.Equal(t, int64(5100), line.LineTotalCents)
	assert.Equal(t, int64(600), line.ModifiersTotalCents)
	assert.Zero(t, line.DiscountCents)
	assert.Equal(t, models.SizeDouble, line.Snapshot.Size)
	assert.Equal(t, models.ItemSnapshotVersion, line.Snapshot.Version)
	require.Len(t, line.Snapshot.Modifiers, 1)
	assert.Empty(t, line.Snapshot.Units)
}

func TestQuoteProduct_TwoForOne(t *testing.T) {
	promos := models.Promotions{TwoForOne: []models.TwoForOnePromotion{{ID: "2x1"}}}

	line, err := QuoteProduct(burger(), repeat(doubleCheese, 4), promos, now)
	require.NoError(t, err)

	assert.Equal(t, int64(3400), line.LineTotalCents)
	assert.Equal(t, int64(3400), line.DiscountCents)
	assert.Equal(t, []string{"2x1"}, line.Snapshot.Promotions)
}

func TestQuoteProduct_TwoForOneChargesCeilHalf(t *testing.T) {
	promos := models.Promotions{TwoForOne: []models.TwoForOnePromotion{{ID: "2x1"}}}

	for qty := 1; qty <= 9; qty++ {
		line, err := QuoteProduct(burger(), repeat(models.Selection{}, qty), promos, now)
		require.NoError(t, err)
		charged := int64((qty + 1) / 2)
		assert.Equal(t, 1000*charged, line.LineTotalCents, "qty %d", qty)
	}
}

func TestQuoteProduct_TwoForOneMixedUnitsWaivesHighest(t *testing.T) {
	promos := models.Promotions{TwoForOne: []models.TwoForOnePromotion{{ID: "2x1"}}}
	sels := []models.Selection{
		{Size: models.SizeSingle},
		doubleCheese,
		{Size: models.SizeSingle, ModifierIDs: []string{"cheese"}},
	}

	line, err := QuoteProduct(burger(), sels, promos, now)
	require.NoError(t, err)

	// 1000 + 1700 + 1200, the 1700 unit is waived
	assert.Equal(t, int64(3900), line.GrossCents)
	assert.Equal(t, int64(2200), line.LineTotalCents)
	assert.Equal(t, int64(1700), line.UnitPriceCents)
	assert.Equal(t, int64(400), line.ModifiersTotalCents)

	require.Len(t, line.Snapshot.Units, 3)
	assert.False(t, line.Snapshot.Units[0].Waived)
	assert.True(t, line.Snapshot.Units[1].Waived)
	assert.False(t, line.Snapshot.Units[2].Waived)
	assert.Empty(t, line.Snapshot.Size)
}

func TestQuoteProduct_EquivalentUnitsAreNotMixed(t *testing.T) {
	sels := []models.Selection{
		{ModifierIDs: []string{"cheese", "bacon"}},
		{Size: models.SizeSingle, ModifierIDs: []string{"bacon", "cheese"}},
	}

	line, err := QuoteProduct(burger(), sels, models.Promotions{}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(1500), line.UnitPriceCents)
	assert.Equal(t, int64(3000), line.LineTotalCents)
	assert.Equal(t, models.SizeSingle, line.Snapshot.Size)
	assert.Len(t, line.Snapshot.Modifiers, 2)
	assert.Empty(t, line.Snapshot.Units)
}

func TestQuoteProduct_TwoForOneTargetsOtherProduct(t *testing.T) {
	promos := models.Promotions{TwoForOne: []models.TwoForOnePromotion{{ID: "2x1", ProductIDs: []string{"fries"}}}}

	line, err := QuoteProduct(burger(), repeat(models.Selection{}, 2), promos, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), line.LineTotalCents)
	assert.Empty(t, line.Snapshot.Promotions)
}

func TestQuoteProduct_PercentUsesMaximumNeverStacks(t *testing.T) {
	promos := models.Promotions{Percent: []models.PercentPromotion{
		{ID: "happy-hour", Percent: 10},
		{ID: "off-peak", Percent: 20, ProductIDs: []string{"burger"}},
		{ID: "night", Percent: 50, Window: models.TimeWindow{Start: "22:00", End: "02:00"}},
	}}

	line, err := QuoteProduct(burger(), repeat(doubleCheese, 2), promos, now)
	require.NoError(t, err)

	assert.Equal(t, int64(1360), line.UnitPriceCents)
	assert.Equal(t, int64(2720), line.LineTotalCents)
	assert.Equal(t, []string{"off-peak"}, line.Snapshot.Promotions)
}

func TestQuoteProduct_PercentThenTwoForOne(t *testing.T) {
	promos := models.Promotions{
		Percent:   []models.PercentPromotion{{ID: "hh", Percent: 20}},
		TwoForOne: []models.TwoForOnePromotion{{ID: "2x1"}},
	}

	line, err := QuoteProduct(burger(), repeat(doubleCheese, 3), promos, now)
	require.NoError(t, err)

	assert.Equal(t, int64(2720), line.LineTotalCents)
	assert.Equal(t, []string{"hh", "2x1"}, line.Snapshot.Promotions)
}

func TestQuoteProduct_OutsideWindow(t *testing.T) {
	promos := models.Promotions{
		Percent: []models.PercentPromotion{{
			ID:      "monday",
			Percent: 30,
			Window:  models.TimeWindow{Weekdays: []time.Weekday{time.Monday}},
		}},
		TwoForOne: []models.TwoForOnePromotion{{
			ID:     "lunch",
			Window: models.TimeWindow{Start: "11:00", End: "14:00"},
		}},
	}

	line, err := QuoteProduct(burger(), repeat(models.Selection{}, 2), promos, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), line.LineTotalCents)
}

func TestQuoteProduct_InvalidConfiguration(t *testing.T) {
	noDouble := burger()
	noDouble.DoublePriceCents = nil

	tests := []struct {
		name    string
		product *models.Product
		sel     models.Selection
	}{
		{"unknown modifier", burger(), models.Selection{ModifierIDs: []string{"truffle"}}},
		{"duplicated modifier", burger(), models.Selection{ModifierIDs: []string{"cheese", "cheese"}}},
		{"double without double price", noDouble, models.Selection{Size: models.SizeDouble}},
		{"unknown size", burger(), models.Selection{Size: "TRIPLE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QuoteProduct(tt.product, []models.Selection{tt.sel}, models.Promotions{}, now)
			require.ErrorIs(t, err, apperr.ErrInvalidConfiguration)
		})
	}
}

func TestApplyPercentRounding(t *testing.T) {
	tests := []struct {
		price   int64
		percent int
		want    int64
	}{
		{1000, 15, 850},
		{1005, 15, 854}, // 854.25
		{1010, 15, 859}, // 858.5 rounds away from zero
		{-1010, 15, -859},
		{999, 0, 999},
		{999, 100, 0},
		{999, 150, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplyPercent(tt.price, tt.percent), "%d at %d%%", tt.price, tt.percent)
	}
}

func TestQuoteCombo(t *testing.T) {
	fries := &models.Product{ID: "fries", Name: "Fries", BasePriceCents: 400, Station: models.StationKitchen}
	soda := &models.Product{ID: "soda", Name: "Soda", BasePriceCents: 300, Station: models.StationBar}
	combo := &models.Combo{
		ID:               "menu",
		Name:             "Burger menu",
		ListedPriceCents: 1400,
		Components: []models.ComboComponent{
			{ProductID: "burger", Qty: 1},
			{ProductID: "fries", Qty: 1},
			{ProductID: "soda", Qty: 1},
		},
	}
	products := map[string]*models.Product{"burger": burger(), "fries": fries, "soda": soda}

	line, savings := QuoteCombo(combo, products, 2)

	assert.Equal(t, int64(1400), line.UnitPriceCents)
	assert.Equal(t, int64(2800), line.LineTotalCents)
	assert.Equal(t, int64(300), savings)
	require.Len(t, line.Snapshot.ComboComponents, 3)
	assert.Equal(t, models.StationBar, line.Snapshot.ComboComponents[2].Station)
}

func TestCoupons(t *testing.T) {
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	t.Run("percent off rounds half away from zero", func(t *testing.T) {
		c := &models.Coupon{Code: "TEN", PercentOff: ptr(10), IsActive: true}
		require.NoError(t, CheckCoupon(c, now))
		assert.Equal(t, int64(105), CouponDiscount(c, 1045))
	})

	t.Run("amount off is capped at subtotal", func(t *testing.T) {
		c := &models.Coupon{Code: "FIVE", AmountOffCents: ptr(int64(500)), IsActive: true}
		assert.Equal(t, int64(300), CouponDiscount(c, 300))
	})

	t.Run("inactive", func(t *testing.T) {
		c := &models.Coupon{Code: "OFF", PercentOff: ptr(10)}
		assert.ErrorIs(t, CheckCoupon(c, now), apperr.ErrCouponInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		c := &models.Coupon{Code: "OLD", PercentOff: ptr(10), ValidUntil: &yesterday, IsActive: true}
		assert.ErrorIs(t, CheckCoupon(c, now), apperr.ErrCouponInvalid)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := &models.Coupon{Code: "SOON", PercentOff: ptr(10), ValidFrom: &tomorrow, IsActive: true}
		assert.ErrorIs(t, CheckCoupon(c, now), apperr.ErrCouponInvalid)
	})

	t.Run("exhausted", func(t *testing.T) {
		c := &models.Coupon{Code: "ONCE", PercentOff: ptr(10), MaxUses: ptr(1), UsedCount: 1, IsActive: true}
		assert.ErrorIs(t, CheckCoupon(c, now), apperr.ErrCouponExhausted)
	})
}

func TestTotals(t *testing.T) {
	discount, total := Totals(1000, 1500, 200)
	assert.Equal(t, int64(1000), discount)
	assert.Equal(t, int64(200), total)

	discount, total = Totals(1000, 250, 0)
	assert.Equal(t, int64(250), discount)
	assert.Equal(t, int64(750), total)
}
