// Package model defines the core data types and structures used throughout the cargosense system.
package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// DeliveryStatus represents the delivery lifecycle state of a cargo job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type DeliveryStatus string

// PaymentStatus represents the payment state of a cargo job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type PaymentStatus string

const (
	// DeliveryScheduled indicates a job that is booked but not yet delivered.
	DeliveryScheduled DeliveryStatus = "Scheduled"
	// DeliveryDelayed indicates a job that has slipped past its plan.
	DeliveryDelayed DeliveryStatus = "Delayed"
	// DeliveryDelivered indicates a completed delivery.
	DeliveryDelivered DeliveryStatus = "Delivered"
	// DeliveryCancelled indicates a cancelled job.
	DeliveryCancelled DeliveryStatus = "Cancelled"

	// PaymentPending indicates payment has not been collected.
	PaymentPending PaymentStatus = "Pending"
	// PaymentPaid indicates payment has been collected.
	PaymentPaid PaymentStatus = "Paid"
	// PaymentRefunded indicates payment was returned to the shipper.
	PaymentRefunded PaymentStatus = "Refunded"
)

// ErrJobNotFound is returned when a job lookup finds no row.
var ErrJobNotFound = errors.New("job not found")

// Valid returns true if the DeliveryStatus is one of the known states.
func (s DeliveryStatus) Valid() bool {
	return s == DeliveryScheduled || s == DeliveryDelayed || s == DeliveryDelivered ||
		s == DeliveryCancelled
}

// Valid returns true if the PaymentStatus is one of the known states.
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid || s == PaymentRefunded
}

// UnmarshalText implements encoding.TextUnmarshaler so status values can be
// parsed from env and query strings. Matching is case-insensitive.
func (s *DeliveryStatus) UnmarshalText(text []byte) error {
	v := canonicalStatus(string(text))
	ds := DeliveryStatus(v)
	if ds.Valid() {
		*s = ds
		return nil
	}
	return fmt.Errorf("invalid DeliveryStatus: %q", string(text))
}

// UnmarshalText implements encoding.TextUnmarshaler for PaymentStatus.
func (s *PaymentStatus) UnmarshalText(text []byte) error {
	v := canonicalStatus(string(text))
	ps := PaymentStatus(v)
	if ps.Valid() {
		*s = ps
		return nil
	}
	return fmt.Errorf("invalid PaymentStatus: %q", string(text))
}

// canonicalStatus title-cases a status token so "delivered" and "DELIVERED"
// both map onto the stored form.
func canonicalStatus(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + strings.ToLower(v[1:])
}

// Stop is an intermediate waypoint between pickup and dropoff.
type Stop struct {
	Location         string `json:"location"`
	EstimatedArrival string `json:"estimated_arrival"`
	Notes            string `json:"notes,omitempty"`
}

// CargoJob represents one freight booking.
//
// Calendar-date fields (pickup_date, estimated_delivery_date,
// actual_delivery_date) are carried as "YYYY-MM-DD" strings with "" meaning
// absent. Stored data can contain malformed values; consumers that need a
// time.Time parse defensively and skip the job rather than fail.
type CargoJob struct {
	ID                    string         `json:"id"                              db:"id"`
	ShipperName           string         `json:"shipper_name"                    db:"shipper_name"`
	PaymentStatus         PaymentStatus  `json:"payment_status"                  db:"payment_status"`
	DeliveryStatus        DeliveryStatus `json:"delivery_status"                 db:"delivery_status"`
	PickupLocation        string         `json:"pickup_location"                 db:"pickup_location"`
	DropoffLocation       string         `json:"dropoff_location"                db:"dropoff_location"`
	IntermediateStops     []Stop         `json:"intermediate_stops"              db:"intermediate_stops"`
	PickupDate            string         `json:"pickup_date"                     db:"pickup_date"`
	EstimatedDeliveryDate string         `json:"estimated_delivery_date"         db:"estimated_delivery_date"`
	ActualDeliveryDate    string         `json:"actual_delivery_date,omitempty"  db:"actual_delivery_date"`
	AgreedPrice           float64        `json:"agreed_price"                    db:"agreed_price"`
	Notes                 string         `json:"notes,omitempty"                 db:"notes"`
	ReceiptURL            string         `json:"receipt_url,omitempty"           db:"receipt_url"`
	CreatedAt             time.Time      `json:"created_at"                      db:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"                      db:"updated_at"`
	CreatedBy             string         `json:"created_by"                      db:"created_by"`
}

const maxNotesLen = 2000

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate parses a stored calendar-date string into a midnight-UTC
// time.Time so day arithmetic stays exact. The second return is false for
// empty or malformed values.
func ParseDate(s string) (time.Time, bool) {
	if !isoDateRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CreateJobRequest represents a request to create a new cargo job. Delivery
// and payment status are server-forced at creation (Scheduled/Pending), so
// the request does not carry them.
type CreateJobRequest struct {
	ShipperName           string  `json:"shipper_name"`
	PickupLocation        string  `json:"pickup_location"`
	DropoffLocation       string  `json:"dropoff_location"`
	IntermediateStops     []Stop  `json:"intermediate_stops,omitempty"`
	PickupDate            string  `json:"pickup_date"`
	EstimatedDeliveryDate string  `json:"estimated_delivery_date"`
	AgreedPrice           float64 `json:"agreed_price"`
	Notes                 string  `json:"notes,omitempty"`
	ReceiptURL            string  `json:"receipt_url,omitempty"`
}

// Validate validates and normalizes the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.ShipperName) == "" {
		return errors.New("shipper_name is required")
	}
	if strings.TrimSpace(r.PickupLocation) == "" {
		return errors.New("pickup_location is required")
	}
	if strings.TrimSpace(r.DropoffLocation) == "" {
		return errors.New("dropoff_location is required")
	}
	if _, ok := ParseDate(r.PickupDate); !ok {
		return errors.New("pickup_date must be YYYY-MM-DD")
	}
	if _, ok := ParseDate(r.EstimatedDeliveryDate); !ok {
		return errors.New("estimated_delivery_date must be YYYY-MM-DD")
	}
	if r.AgreedPrice < 0 {
		return errors.New("agreed_price must be >= 0")
	}
	r.AgreedPrice = roundCents(r.AgreedPrice)
	if len(r.Notes) > maxNotesLen {
		return fmt.Errorf("notes must be at most %d characters", maxNotesLen)
	}
	for i := range r.IntermediateStops {
		if strings.TrimSpace(r.IntermediateStops[i].Location) == "" {
			return fmt.Errorf("intermediate_stops[%d].location is required", i)
		}
	}
	return nil
}

// UpdateJobRequest represents a partial update to an existing job. Nil
// pointers mean "leave unchanged". created_at/updated_at/created_by are
// server-managed and deliberately absent.
type UpdateJobRequest struct {
	ShipperName           *string         `json:"shipper_name,omitempty"`
	PaymentStatus         *PaymentStatus  `json:"payment_status,omitempty"`
	DeliveryStatus        *DeliveryStatus `json:"delivery_status,omitempty"`
	PickupLocation        *string         `json:"pickup_location,omitempty"`
	DropoffLocation       *string         `json:"dropoff_location,omitempty"`
	IntermediateStops     *[]Stop         `json:"intermediate_stops,omitempty"`
	PickupDate            *string         `json:"pickup_date,omitempty"`
	EstimatedDeliveryDate *string         `json:"estimated_delivery_date,omitempty"`
	ActualDeliveryDate    *string         `json:"actual_delivery_date,omitempty"`
	AgreedPrice           *float64        `json:"agreed_price,omitempty"`
	Notes                 *string         `json:"notes,omitempty"`
	ReceiptURL            *string         `json:"receipt_url,omitempty"`
}

// Validate validates and normalizes the UpdateJobRequest fields.
func (r *UpdateJobRequest) Validate() error {
	if r.ShipperName != nil && strings.TrimSpace(*r.ShipperName) == "" {
		return errors.New("shipper_name cannot be empty")
	}
	if r.PaymentStatus != nil && !r.PaymentStatus.Valid() {
		return fmt.Errorf("invalid payment_status: %q", *r.PaymentStatus)
	}
	if r.DeliveryStatus != nil && !r.DeliveryStatus.Valid() {
		return fmt.Errorf("invalid delivery_status: %q", *r.DeliveryStatus)
	}
	if r.PickupDate != nil {
		if _, ok := ParseDate(*r.PickupDate); !ok {
			return errors.New("pickup_date must be YYYY-MM-DD")
		}
	}
	if r.EstimatedDeliveryDate != nil {
		if _, ok := ParseDate(*r.EstimatedDeliveryDate); !ok {
			return errors.New("estimated_delivery_date must be YYYY-MM-DD")
		}
	}
	// Actual delivery date may be cleared with an explicit empty string.
	if r.ActualDeliveryDate != nil && *r.ActualDeliveryDate != "" {
		if _, ok := ParseDate(*r.ActualDeliveryDate); !ok {
			return errors.New("actual_delivery_date must be YYYY-MM-DD")
		}
	}
	if r.AgreedPrice != nil {
		if *r.AgreedPrice < 0 {
			return errors.New("agreed_price must be >= 0")
		}
		*r.AgreedPrice = roundCents(*r.AgreedPrice)
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLen {
		return fmt.Errorf("notes must be at most %d characters", maxNotesLen)
	}
	if r.IntermediateStops != nil {
		for i := range *r.IntermediateStops {
			if strings.TrimSpace((*r.IntermediateStops)[i].Location) == "" {
				return fmt.Errorf("intermediate_stops[%d].location is required", i)
			}
		}
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
