package stats

import (
	"math"
	"sort"
	"time"

	"github.com/cargosense/cargosense/internal/domain/model"
)

// MonthlyTrend is one month's job count and revenue in the trailing window.
type MonthlyTrend struct {
	Month    string  `json:"month"`
	JobCount int     `json:"jobCount"`
	Revenue  float64 `json:"revenue"`
}

// Stats is the full dashboard metrics bundle computed from one job snapshot.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Delivered int `json:"delivered"`
	Cancelled int `json:"cancelled"`
	Delayed   int `json:"delayed"`

	PaidJobsCount     int `json:"paidJobsCount"`
	PendingJobsCount  int `json:"pendingJobsCount"`
	RefundedJobsCount int `json:"refundedJobsCount"`

	TotalRevenue     float64 `json:"totalRevenue"`
	PendingRevenue   float64 `json:"pendingRevenue"`
	RevenueThisMonth float64 `json:"revenueThisMonth"`
	AvgAgreedPrice   float64 `json:"avgAgreedPrice"`
	CollectionRate   float64 `json:"collectionRate"`

	OnTimeDeliveryRate float64 `json:"onTimeDeliveryRate"`
	AvgDeliveryTime    int     `json:"avgDeliveryTime"`

	JobsToday     int `json:"jobsToday"`
	JobsThisWeek  int `json:"jobsThisWeek"`
	JobsThisMonth int `json:"jobsThisMonth"`

	UpcomingDeliveries int `json:"upcomingDeliveries"`
	OverdueDeliveries  int `json:"overdueDeliveries"`

	SeasonalTrends []MonthlyTrend `json:"seasonalTrends"`

	TimeContext
}

// ShipperSummary is one shipper's slice of the book of business.
type ShipperSummary struct {
	ShipperName string  `json:"shipperName"`
	JobCount    int     `json:"jobCount"`
	Revenue     float64 `json:"revenue"`
}

// Aggregate computes the metrics bundle over jobs relative to now. It never
// mutates jobs and never fails: malformed stored dates exclude a job from
// the sub-metric that needed the date, nothing more.
func Aggregate(jobs []model.CargoJob, now time.Time) Stats {
	s := Stats{
		Total:          len(jobs),
		SeasonalTrends: make([]MonthlyTrend, 0, trendMonths),
		TimeContext:    Classify(now),
	}

	today := dateOnly(now)
	weekAgo := now.AddDate(0, 0, -7)

	var (
		onTimeEligible int
		onTimeCount    int
		deliveryDays   int
		deliveryCount  int
	)

	for i := range jobs {
		job := &jobs[i]

		switch job.DeliveryStatus {
		case model.DeliveryScheduled:
			s.Active++
		case model.DeliveryDelivered:
			s.Delivered++
		case model.DeliveryCancelled:
			s.Cancelled++
		case model.DeliveryDelayed:
			s.Delayed++
		}

		switch job.PaymentStatus {
		case model.PaymentPaid:
			s.PaidJobsCount++
		case model.PaymentPending:
			s.PendingJobsCount++
		case model.PaymentRefunded:
			s.RefundedJobsCount++
		}

		s.TotalRevenue += job.AgreedPrice
		if job.PaymentStatus == model.PaymentPending {
			s.PendingRevenue += job.AgreedPrice
		}

		if sameDay(job.CreatedAt, now) {
			s.JobsToday++
		}
		if !job.CreatedAt.Before(weekAgo) && !job.CreatedAt.After(now) {
			s.JobsThisWeek++
		}
		if sameMonth(job.CreatedAt, now) {
			s.JobsThisMonth++
			s.RevenueThisMonth += job.AgreedPrice
		}

		if job.DeliveryStatus == model.DeliveryDelivered {
			actual, actualOK := model.ParseDate(job.ActualDeliveryDate)
			estimated, estimatedOK := model.ParseDate(job.EstimatedDeliveryDate)
			if actualOK && estimatedOK {
				onTimeEligible++
				if !actual.After(estimated) {
					onTimeCount++
				}
			}
			if pickup, ok := model.ParseDate(job.PickupDate); ok && actualOK {
				deliveryDays += int(actual.Sub(pickup) / (24 * time.Hour))
				deliveryCount++
			}
		}

		if job.DeliveryStatus == model.DeliveryScheduled {
			if estimated, ok := model.ParseDate(job.EstimatedDeliveryDate); ok {
				if estimated.Before(today) {
					s.OverdueDeliveries++
				} else {
					s.UpcomingDeliveries++
				}
			}
		}
	}

	if s.Total > 0 {
		s.AvgAgreedPrice = s.TotalRevenue / float64(s.Total)
	}
	if s.TotalRevenue > 0 {
		s.CollectionRate = (s.TotalRevenue - s.PendingRevenue) / s.TotalRevenue * 100
	}
	if onTimeEligible > 0 {
		s.OnTimeDeliveryRate = float64(onTimeCount) / float64(onTimeEligible) * 100
	}
	if deliveryCount > 0 {
		s.AvgDeliveryTime = int(math.Round(float64(deliveryDays) / float64(deliveryCount)))
	}

	s.SeasonalTrends = monthlyTrends(jobs, now)

	return s
}

const trendMonths = 6

// monthlyTrends buckets jobs by creation month over the trailing six
// calendar months, oldest first.
func monthlyTrends(jobs []model.CargoJob, now time.Time) []MonthlyTrend {
	trends := make([]MonthlyTrend, 0, trendMonths)
	for i := trendMonths - 1; i >= 0; i-- {
		// Anchor on the first of the month so month arithmetic never
		// overflows into a neighboring month.
		anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
			AddDate(0, -i, 0)

		trend := MonthlyTrend{
			Month: anchor.Month().String() + " " + anchor.Format("2006"),
		}
		for j := range jobs {
			if sameMonth(jobs[j].CreatedAt, anchor) {
				trend.JobCount++
				trend.Revenue += jobs[j].AgreedPrice
			}
		}
		trends = append(trends, trend)
	}
	return trends
}

// TopShippers ranks shippers by total revenue, highest first, returning at
// most n entries. Ties keep the first-seen shipper order stable.
func TopShippers(jobs []model.CargoJob, n int) []ShipperSummary {
	if n <= 0 {
		return nil
	}

	index := make(map[string]int)
	summaries := make([]ShipperSummary, 0)
	for i := range jobs {
		name := jobs[i].ShipperName
		pos, ok := index[name]
		if !ok {
			pos = len(summaries)
			index[name] = pos
			summaries = append(summaries, ShipperSummary{ShipperName: name})
		}
		summaries[pos].JobCount++
		summaries[pos].Revenue += jobs[i].AgreedPrice
	}

	sort.SliceStable(summaries, func(a, b int) bool {
		return summaries[a].Revenue > summaries[b].Revenue
	})
	if len(summaries) > n {
		summaries = summaries[:n]
	}
	return summaries
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
