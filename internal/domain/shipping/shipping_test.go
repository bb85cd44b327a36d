package shipping

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// wednesday is a fixed reference date, 2025-03-12 10:00 local time.
var wednesday = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(zap.NewNop(), DefaultSameDayCutoff)
}

func TestRegistry_KnownTags(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, []string{
		TagEcoFriendly, TagExpress, TagInternational,
		TagSameDay, TagScheduled, TagStandard,
	}, r.Tags())

	assert.True(t, r.Known(TagExpress))
	assert.False(t, r.Known("drone"))
}

func TestRegistry_ResolveFallsBackToStandard(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Resolve("drone")
	assert.Equal(t, TagStandard, got.Tag())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(SameDay{Cutoff: 10 * time.Hour})

	got, ok := r.Resolve(TagSameDay).(SameDay)
	require.True(t, ok)
	assert.Equal(t, 10*time.Hour, got.Cutoff)
}

func TestInternational_Estimate(t *testing.T) {
	est := International{}.EstimatedDelivery(wednesday)
	assert.Equal(t, wednesday.AddDate(0, 0, 10), est.Earliest)
	assert.Equal(t, wednesday.AddDate(0, 0, 18), est.Latest)
}

func TestInternational_Surcharges(t *testing.T) {
	cost := International{}.AdditionalCost(decimal.NewFromInt(200))

	require.Len(t, cost.Lines, 2)
	// 3% insurance on 200 plus the flat customs fee.
	assert.True(t, cost.Lines[0].Amount.Equal(decimal.NewFromInt(6)), "insurance = %s", cost.Lines[0].Amount)
	assert.True(t, cost.Lines[1].Amount.Equal(decimal.NewFromInt(25)))
	assert.True(t, cost.Total.Equal(decimal.NewFromInt(31)), "total = %s", cost.Total)
}

func TestTaxMultipliers(t *testing.T) {
	assert.True(t, International{}.TaxMultiplier().Equal(decimal.RequireFromString("1.30")))
	assert.True(t, Express{}.TaxMultiplier().Equal(decimal.RequireFromString("1.15")))
	assert.True(t, Standard{}.TaxMultiplier().Equal(decimal.NewFromInt(1)))
	assert.True(t, Scheduled{}.TaxMultiplier().Equal(decimal.NewFromInt(1)))
	assert.True(t, EcoFriendly{}.TaxMultiplier().Equal(decimal.NewFromInt(1)))
	assert.True(t, SameDay{}.TaxMultiplier().Equal(decimal.NewFromInt(1)))
}

func TestExpress_NextBusinessDay(t *testing.T) {
	est := Express{}.EstimatedDelivery(wednesday)
	assert.Equal(t, wednesday.AddDate(0, 0, 1), est.Earliest)
	assert.Equal(t, est.Earliest, est.Latest)
	assert.Equal(t, "09:00 - 18:00", est.Window)
}

func TestExpress_SkipsWeekend(t *testing.T) {
	friday := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	est := Express{}.EstimatedDelivery(friday)

	// Saturday and Sunday shift the target to Monday.
	assert.Equal(t, time.Monday, est.Earliest.Weekday())
	assert.Equal(t, friday.AddDate(0, 0, 3), est.Earliest)
}

func TestScheduled_DefaultsToFiveDays(t *testing.T) {
	est := Scheduled{}.EstimatedDelivery(wednesday)
	assert.Equal(t, wednesday.AddDate(0, 0, 5), est.Earliest)
}

func TestScheduled_EstimateFor(t *testing.T) {
	date := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	est := Scheduled{}.EstimateFor(date)
	assert.Equal(t, date, est.Earliest)
	assert.Equal(t, date, est.Latest)
	assert.Equal(t, "09:00 - 17:00", est.Window)
}

func TestStandard_NoSurcharges(t *testing.T) {
	cost := Standard{}.AdditionalCost(decimal.NewFromInt(500))
	assert.Empty(t, cost.Lines)
	assert.True(t, cost.Total.IsZero())

	est := Standard{}.EstimatedDelivery(wednesday)
	assert.Equal(t, wednesday.AddDate(0, 0, 3), est.Earliest)
	assert.Equal(t, wednesday.AddDate(0, 0, 7), est.Latest)
}

func TestSameDay_BeforeCutoff(t *testing.T) {
	// 10:00 is before the default 14:00 cutoff.
	est := SameDay{}.EstimatedDelivery(wednesday)

	midnight := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, est.Earliest)
	assert.Equal(t, "18:00 - 21:00", est.Window)
}

func TestSameDay_AfterCutoff(t *testing.T) {
	evening := time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC)
	est := SameDay{}.EstimatedDelivery(evening)

	nextMorning := time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, nextMorning, est.Earliest)
	assert.Equal(t, "09:00 - 12:00", est.Window)
}

func TestSameDay_CustomCutoff(t *testing.T) {
	// With a 9:00 cutoff, a 10:00 order ships next morning.
	est := SameDay{Cutoff: 9 * time.Hour}.EstimatedDelivery(wednesday)
	assert.Equal(t, wednesday.AddDate(0, 0, 1).Truncate(24*time.Hour), est.Earliest)
}

func TestSpecialConditions_FourPerType(t *testing.T) {
	r := newTestRegistry(t)
	for _, tag := range r.Tags() {
		assert.Len(t, r.Resolve(tag).SpecialConditions(), 4, "type %s", tag)
	}
}
