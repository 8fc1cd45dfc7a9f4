package testutil

import (
	"github.com/cargosense/cargosense/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			ShipperName:           "Acme Freight",
			PickupLocation:        "Rotterdam",
			DropoffLocation:       "Hamburg",
			PickupDate:            "2024-01-10",
			EstimatedDeliveryDate: "2024-01-15",
			AgreedPrice:           1250.00,
		},
	}
}

// WithShipper sets the shipper name.
func (b *JobRequestBuilder) WithShipper(name string) *JobRequestBuilder {
	b.req.ShipperName = name
	return b
}

// WithRoute sets pickup and dropoff locations.
func (b *JobRequestBuilder) WithRoute(pickup, dropoff string) *JobRequestBuilder {
	b.req.PickupLocation = pickup
	b.req.DropoffLocation = dropoff
	return b
}

// WithStops sets the intermediate stops.
func (b *JobRequestBuilder) WithStops(stops ...model.Stop) *JobRequestBuilder {
	b.req.IntermediateStops = stops
	return b
}

// WithPickupDate sets the pickup date ("YYYY-MM-DD").
func (b *JobRequestBuilder) WithPickupDate(date string) *JobRequestBuilder {
	b.req.PickupDate = date
	return b
}

// WithEstimatedDelivery sets the estimated delivery date ("YYYY-MM-DD").
func (b *JobRequestBuilder) WithEstimatedDelivery(date string) *JobRequestBuilder {
	b.req.EstimatedDeliveryDate = date
	return b
}

// WithPrice sets the agreed price.
func (b *JobRequestBuilder) WithPrice(price float64) *JobRequestBuilder {
	b.req.AgreedPrice = price
	return b
}

// WithNotes sets the notes field.
func (b *JobRequestBuilder) WithNotes(notes string) *JobRequestBuilder {
	b.req.Notes = notes
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}
