package model

import "time"

// JobHistoryEntry records one field change on a job. Updates that touch
// several fields emit one entry per field, all sharing the same ChangedAt.
type JobHistoryEntry struct {
	ID        string    `json:"id"         db:"id"`
	JobID     string    `json:"job_id"     db:"job_id"`
	Field     string    `json:"field"      db:"field"`
	OldValue  string    `json:"old_value"  db:"old_value"`
	NewValue  string    `json:"new_value"  db:"new_value"`
	ChangedBy string    `json:"changed_by" db:"changed_by"`
	ChangedAt time.Time `json:"changed_at" db:"changed_at"`
}
