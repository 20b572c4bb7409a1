package task

import (
	"time"

	"github.com/google/uuid"
)

// EstimationHistoryEntry is an immutable audit record of one estimation change.
type EstimationHistoryEntry struct {
	ID                 string    `json:"id"`
	TaskID             int64     `json:"task_id"`
	PreviousEstimation *float64  `json:"previous_estimation,omitempty"`
	NewEstimation      *float64  `json:"new_estimation,omitempty"`
	PreviousLoadFactor *float64  `json:"previous_load_factor,omitempty"`
	NewLoadFactor      *float64  `json:"new_load_factor,omitempty"`
	ChangedBy          string    `json:"changed_by"`
	ChangedAt          time.Time `json:"changed_at"`
}

// NewEstimationHistoryEntry returns an entry when either value changed, nil
// otherwise.
func NewEstimationHistoryEntry(taskID int64, prevEst, newEst, prevLoad, newLoad *float64, changedBy string, at time.Time) *EstimationHistoryEntry {
	if sameValue(prevEst, newEst) && sameValue(prevLoad, newLoad) {
		return nil
	}

	return &EstimationHistoryEntry{
		ID:                 uuid.New().String(),
		TaskID:             taskID,
		PreviousEstimation: prevEst,
		NewEstimation:      newEst,
		PreviousLoadFactor: prevLoad,
		NewLoadFactor:      newLoad,
		ChangedBy:          changedBy,
		ChangedAt:          at,
	}
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
