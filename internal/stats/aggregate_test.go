package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargosense/cargosense/internal/domain/model"
)

// fixedNow is a Tuesday morning in mid June.
var fixedNow = time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)

func job(mutate func(*model.CargoJob)) model.CargoJob {
	j := model.CargoJob{
		ID:                    "j-1",
		ShipperName:           "Acme Freight",
		PaymentStatus:         model.PaymentPending,
		DeliveryStatus:        model.DeliveryScheduled,
		PickupLocation:        "Oakland, CA",
		DropoffLocation:       "Reno, NV",
		PickupDate:            "2025-06-01",
		EstimatedDeliveryDate: "2025-06-20",
		AgreedPrice:           100,
		CreatedAt:             fixedNow.AddDate(0, 0, -2),
		UpdatedAt:             fixedNow.AddDate(0, 0, -2),
	}
	if mutate != nil {
		mutate(&j)
	}
	return j
}

func TestAggregateEmptySnapshot(t *testing.T) {
	s := Aggregate(nil, fixedNow)

	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.TotalRevenue)
	assert.Zero(t, s.AvgAgreedPrice)
	assert.Zero(t, s.CollectionRate)
	assert.Zero(t, s.OnTimeDeliveryRate)
	assert.Zero(t, s.AvgDeliveryTime)
	assert.Len(t, s.SeasonalTrends, 6)
	assert.Equal(t, "Summer", s.Season)
}

func TestAggregateStatusCounts(t *testing.T) {
	jobs := []model.CargoJob{
		job(nil),
		job(func(j *model.CargoJob) { j.DeliveryStatus = model.DeliveryDelivered; j.PaymentStatus = model.PaymentPaid }),
		job(func(j *model.CargoJob) { j.DeliveryStatus = model.DeliveryCancelled; j.PaymentStatus = model.PaymentRefunded }),
		job(func(j *model.CargoJob) { j.DeliveryStatus = model.DeliveryDelayed }),
		job(func(j *model.CargoJob) { j.DeliveryStatus = "Lost" }),
	}

	s := Aggregate(jobs, fixedNow)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 1, s.Delivered)
	assert.Equal(t, 1, s.Cancelled)
	assert.Equal(t, 1, s.Delayed)
	assert.Equal(t, 1, s.PaidJobsCount)
	assert.Equal(t, 3, s.PendingJobsCount)
	assert.Equal(t, 1, s.RefundedJobsCount)
}

func TestAggregateRevenue(t *testing.T) {
	jobs := []model.CargoJob{
		job(func(j *model.CargoJob) { j.AgreedPrice = 300; j.PaymentStatus = model.PaymentPaid }),
		job(func(j *model.CargoJob) { j.AgreedPrice = 100; j.PaymentStatus = model.PaymentPending }),
	}

	s := Aggregate(jobs, fixedNow)

	assert.InDelta(t, 400, s.TotalRevenue, 0.0001)
	assert.InDelta(t, 100, s.PendingRevenue, 0.0001)
	assert.InDelta(t, 200, s.AvgAgreedPrice, 0.0001)
	assert.InDelta(t, 75, s.CollectionRate, 0.0001)
}

func TestAggregateReferenceScenario(t *testing.T) {
	jobs := []model.CargoJob{
		job(func(j *model.CargoJob) {
			j.AgreedPrice = 100
			j.PaymentStatus = model.PaymentPaid
			j.DeliveryStatus = model.DeliveryDelivered
			j.PickupDate = "2024-01-01"
			j.ActualDeliveryDate = "2024-01-05"
			j.EstimatedDeliveryDate = "2024-01-10"
		}),
	}

	s := Aggregate(jobs, fixedNow)

	assert.InDelta(t, 100, s.TotalRevenue, 0.0001)
	assert.Zero(t, s.PendingRevenue)
	assert.InDelta(t, 100, s.OnTimeDeliveryRate, 0.0001)
	assert.Equal(t, 4, s.AvgDeliveryTime)
}

func TestAggregateOnTimeRate(t *testing.T) {
	tests := []struct {
		name string
		jobs []model.CargoJob
		want float64
	}{
		{
			name: "equal dates count as on time",
			jobs: []model.CargoJob{job(func(j *model.CargoJob) {
				j.DeliveryStatus = model.DeliveryDelivered
				j.ActualDeliveryDate = "2025-06-05"
				j.EstimatedDeliveryDate = "2025-06-05"
			})},
			want: 100,
		},
		{
			name: "late delivery",
			jobs: []model.CargoJob{job(func(j *model.CargoJob) {
				j.DeliveryStatus = model.DeliveryDelivered
				j.ActualDeliveryDate = "2025-06-06"
				j.EstimatedDeliveryDate = "2025-06-05"
			})},
			want: 0,
		},
		{
			name: "missing actual date excluded",
			jobs: []model.CargoJob{job(func(j *model.CargoJob) {
				j.DeliveryStatus = model.DeliveryDelivered
				j.ActualDeliveryDate = ""
			})},
			want: 0,
		},
		{
			name: "malformed estimate excluded, valid job still counted",
			jobs: []model.CargoJob{
				job(func(j *model.CargoJob) {
					j.DeliveryStatus = model.DeliveryDelivered
					j.ActualDeliveryDate = "2025-06-05"
					j.EstimatedDeliveryDate = "garbage"
				}),
				job(func(j *model.CargoJob) {
					j.DeliveryStatus = model.DeliveryDelivered
					j.ActualDeliveryDate = "2025-06-04"
					j.EstimatedDeliveryDate = "2025-06-05"
				}),
			},
			want: 100,
		},
		{
			name: "non-delivered jobs ignored",
			jobs: []model.CargoJob{job(func(j *model.CargoJob) {
				j.DeliveryStatus = model.DeliveryDelayed
				j.ActualDeliveryDate = "2025-06-01"
				j.EstimatedDeliveryDate = "2025-06-05"
			})},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(tt.jobs, fixedNow)
			assert.InDelta(t, tt.want, s.OnTimeDeliveryRate, 0.0001)
		})
	}
}

func TestAggregateAvgDeliveryTimeRounds(t *testing.T) {
	jobs := []model.CargoJob{
		job(func(j *model.CargoJob) {
			j.DeliveryStatus = model.DeliveryDelivered
			j.PickupDate = "2025-06-01"
			j.ActualDeliveryDate = "2025-06-04" // 3 days
		}),
		job(func(j *model.CargoJob) {
			j.DeliveryStatus = model.DeliveryDelivered
			j.PickupDate = "2025-06-01"
			j.ActualDeliveryDate = "2025-06-07" // 6 days
		}),
	}

	s := Aggregate(jobs, fixedNow)
	assert.Equal(t, 5, s.AvgDeliveryTime) // mean 4.5 rounds up
}

func TestAggregateTimeBuckets(t *testing.T) {
	jobs := []model.CargoJob{
		job(func(j *model.CargoJob) { j.CreatedAt = fixedNow.Add(-2 * time.Hour) }),     // today
		job(func(j *model.CargoJob) { j.CreatedAt = fixedNow.AddDate(0, 0, -3) }),       // this week
		job(func(j *model.CargoJob) { j.CreatedAt = fixedNow.AddDate(0, 0, -9) }),       // this month only
		job(func(j *model.CargoJob) { j.CreatedAt = fixedNow.AddDate(0, -2, 0); j.AgreedPrice = 500 }), // older
	}

	s := Aggregate(jobs, fixedNow)

	assert.Equal(t, 1, s.JobsToday)
	assert.Equal(t, 2, s.JobsThisWeek)
	assert.Equal(t, 3, s.JobsThisMonth)
	assert.InDelta(t, 300, s.RevenueThisMonth, 0.0001)
}

func TestAggregateUpcomingAndOverdue(t *testing.T) {
	jobs := []model.CargoJob{
		job(func(j *model.CargoJob) { j.EstimatedDeliveryDate = "2025-06-20" }), // upcoming
		job(func(j *model.CargoJob) { j.EstimatedDeliveryDate = "2025-06-10" }), // today counts as upcoming
		job(func(j *model.CargoJob) { j.EstimatedDeliveryDate = "2025-06-01" }), // overdue
		job(func(j *model.CargoJob) {
			// Delayed jobs are not scanned, even when past due.
			j.DeliveryStatus = model.DeliveryDelayed
			j.EstimatedDeliveryDate = "2025-05-01"
		}),
		job(func(j *model.CargoJob) { j.EstimatedDeliveryDate = "not-a-date" }),
	}

	s := Aggregate(jobs, fixedNow)

	assert.Equal(t, 2, s.UpcomingDeliveries)
	assert.Equal(t, 1, s.OverdueDeliveries)
}

func TestAggregateSeasonalTrends(t *testing.T) {
	jobs := []model.CargoJob{
		job(func(j *model.CargoJob) { j.CreatedAt = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC); j.AgreedPrice = 50 }),
		job(func(j *model.CargoJob) { j.CreatedAt = time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC); j.AgreedPrice = 75 }),
		job(func(j *model.CargoJob) { j.CreatedAt = time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC); j.AgreedPrice = 25 }),
		job(func(j *model.CargoJob) { j.CreatedAt = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC); j.AgreedPrice = 10 }),
	}

	s := Aggregate(jobs, fixedNow)

	require.Len(t, s.SeasonalTrends, 6)
	assert.Equal(t, "January 2025", s.SeasonalTrends[0].Month)
	assert.Equal(t, "June 2025", s.SeasonalTrends[5].Month)

	assert.Equal(t, 1, s.SeasonalTrends[0].JobCount)
	assert.InDelta(t, 50, s.SeasonalTrends[0].Revenue, 0.0001)

	// April is index 3 counting back from June.
	assert.Equal(t, 2, s.SeasonalTrends[3].JobCount)
	assert.InDelta(t, 100, s.SeasonalTrends[3].Revenue, 0.0001)

	// February had no jobs but still gets an entry.
	assert.Equal(t, "February 2025", s.SeasonalTrends[1].Month)
	assert.Zero(t, s.SeasonalTrends[1].JobCount)
}

func TestAggregateTrendsAcrossYearBoundary(t *testing.T) {
	feb := time.Date(2025, time.February, 5, 12, 0, 0, 0, time.UTC)
	s := Aggregate(nil, feb)

	require.Len(t, s.SeasonalTrends, 6)
	assert.Equal(t, "September 2024", s.SeasonalTrends[0].Month)
	assert.Equal(t, "December 2024", s.SeasonalTrends[3].Month)
	assert.Equal(t, "February 2025", s.SeasonalTrends[5].Month)
}

func TestTopShippers(t *testing.T) {
	jobs := []model.CargoJob{
		job(func(j *model.CargoJob) { j.ShipperName = "Acme"; j.AgreedPrice = 100 }),
		job(func(j *model.CargoJob) { j.ShipperName = "Acme"; j.AgreedPrice = 150 }),
		job(func(j *model.CargoJob) { j.ShipperName = "Globex"; j.AgreedPrice = 400 }),
		job(func(j *model.CargoJob) { j.ShipperName = "Initech"; j.AgreedPrice = 50 }),
	}

	top := TopShippers(jobs, 2)

	require.Len(t, top, 2)
	assert.Equal(t, "Globex", top[0].ShipperName)
	assert.InDelta(t, 400, top[0].Revenue, 0.0001)
	assert.Equal(t, "Acme", top[1].ShipperName)
	assert.Equal(t, 2, top[1].JobCount)
	assert.InDelta(t, 250, top[1].Revenue, 0.0001)

	assert.Empty(t, TopShippers(jobs, 0))
	assert.Len(t, TopShippers(jobs, 10), 3)
}
