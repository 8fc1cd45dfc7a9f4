package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargosense/cargosense/internal/domain/model"
	"github.com/cargosense/cargosense/internal/testutil"
)

func TestDiffJobs(t *testing.T) {
	oldJob := &model.CargoJob{
		ShipperName:           "Acme Freight",
		PaymentStatus:         model.PaymentPending,
		DeliveryStatus:        model.DeliveryScheduled,
		PickupLocation:        "Rotterdam",
		DropoffLocation:       "Hamburg",
		PickupDate:            "2024-01-10",
		EstimatedDeliveryDate: "2024-01-15",
		AgreedPrice:           1250.00,
	}

	t.Run("no changes yields empty diff", func(t *testing.T) {
		newJob := *oldJob
		assert.Empty(t, diffJobs(oldJob, &newJob))
	})

	t.Run("changed fields are listed with old and new values", func(t *testing.T) {
		newJob := *oldJob
		newJob.DeliveryStatus = model.DeliveryDelivered
		newJob.ActualDeliveryDate = "2024-01-14"

		changes := diffJobs(oldJob, &newJob)
		require.Len(t, changes, 2)

		byField := map[string]fieldChange{}
		for _, c := range changes {
			byField[c.field] = c
		}

		require.Contains(t, byField, "delivery_status")
		assert.Equal(t, "Scheduled", byField["delivery_status"].oldValue)
		assert.Equal(t, "Delivered", byField["delivery_status"].newValue)

		require.Contains(t, byField, "actual_delivery_date")
		assert.Equal(t, "", byField["actual_delivery_date"].oldValue)
		assert.Equal(t, "2024-01-14", byField["actual_delivery_date"].newValue)
	})

	t.Run("price changes use two decimal places", func(t *testing.T) {
		newJob := *oldJob
		newJob.AgreedPrice = 1300

		changes := diffJobs(oldJob, &newJob)
		require.Len(t, changes, 1)
		assert.Equal(t, "agreed_price", changes[0].field)
		assert.Equal(t, "1250.00", changes[0].oldValue)
		assert.Equal(t, "1300.00", changes[0].newValue)
	})

	t.Run("stops are compared by their JSON form", func(t *testing.T) {
		newJob := *oldJob
		newJob.IntermediateStops = []model.Stop{{Location: "Bremen", EstimatedArrival: "2024-01-12"}}

		changes := diffJobs(oldJob, &newJob)
		require.Len(t, changes, 1)
		assert.Equal(t, "intermediate_stops", changes[0].field)
		assert.Equal(t, "[]", changes[0].oldValue)
		assert.Contains(t, changes[0].newValue, "Bremen")
	})
}

func TestApplyUpdate(t *testing.T) {
	job := model.CargoJob{
		ShipperName:    "Acme Freight",
		DeliveryStatus: model.DeliveryScheduled,
		Notes:          "fragile",
	}

	status := model.DeliveryDelayed
	notes := ""
	applyUpdate(&job, &model.UpdateJobRequest{
		DeliveryStatus: &status,
		Notes:          &notes,
	})

	assert.Equal(t, model.DeliveryDelayed, job.DeliveryStatus)
	assert.Equal(t, "", job.Notes, "explicit empty string clears the field")
	assert.Equal(t, "Acme Freight", job.ShipperName, "nil fields stay untouched")
}

func TestStopsLabel(t *testing.T) {
	assert.Equal(t, "[]", stopsLabel(nil))
	assert.Equal(t, "[]", stopsLabel([]model.Stop{}))

	label := stopsLabel([]model.Stop{{Location: "Bremen", EstimatedArrival: "2024-01-12"}})
	assert.Contains(t, label, `"location":"Bremen"`)
}

func TestJobRepoLifecycle(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, nil)
		history := NewHistoryRepo(db, nil)

		req := testutil.NewJobRequest().
			WithShipper("Baltic Lines").
			WithRoute("Gdansk", "Oslo").
			Build()

		created, err := repo.Create(ctx, req, "tester")
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, model.DeliveryScheduled, created.DeliveryStatus)
		assert.Equal(t, model.PaymentPending, created.PaymentStatus)
		assert.Equal(t, "tester", created.CreatedBy)

		fetched, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Baltic Lines", fetched.ShipperName)

		status := model.DeliveryDelivered
		actual := "2024-01-14"
		updated, err := repo.Update(ctx, created.ID, &model.UpdateJobRequest{
			DeliveryStatus:     &status,
			ActualDeliveryDate: &actual,
		}, "tester")
		require.NoError(t, err)
		assert.Equal(t, model.DeliveryDelivered, updated.DeliveryStatus)
		assert.Equal(t, "2024-01-14", updated.ActualDeliveryDate)

		entries, err := history.ListByJob(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, "tester", e.ChangedBy)
		}

		jobs, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 1)

		require.NoError(t, repo.Delete(ctx, created.ID))
		_, err = repo.GetByID(ctx, created.ID)
		assert.True(t, errors.Is(err, model.ErrJobNotFound))
	})
}

func TestJobRepoUpdateMissingJob(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, nil)

		name := "Ghost Shipper"
		_, err := repo.Update(context.Background(), "00000000-0000-0000-0000-000000000000",
			&model.UpdateJobRequest{ShipperName: &name}, "tester")
		assert.True(t, errors.Is(err, model.ErrJobNotFound))
	})
}
