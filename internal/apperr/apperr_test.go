package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
		id       string
	}{
		{"task not found", TaskNotFound("commit", "42"), ErrTaskNotFound, KindNotFound, "42"},
		{"team not found", TeamNotFound("commit", "7"), ErrTeamNotFound, KindNotFound, "7"},
		{"invalid date range", InvalidDateRange("commit", "42"), ErrInvalidDateRange, KindValidation, "42"},
		{"ineligible task", IneligibleTask("recommend", "42", "stage done"), ErrIneligibleTask, KindValidation, "42"},
		{"invalid stage", InvalidStage("commit", "42", "done"), ErrInvalidStage, KindStateConflict, "42"},
		{"invalid estimation", InvalidEstimation("commit", "42", "too big"), ErrInvalidEstimation, KindValidation, "42"},
		{"version conflict", VersionConflict("commit", "42"), ErrVersionConflict, KindStateConflict, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.id, IDOf(tt.err))
		})
	}
}

func TestKindOf_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", TaskNotFound("fetch", "9"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "9", IDOf(err))
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestKindOf_ForeignError(t *testing.T) {
	err := errors.New("connection refused")

	assert.Equal(t, KindCollaborator, KindOf(err))
	assert.Empty(t, IDOf(err))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "commit 42: task not found", TaskNotFound("commit", "42").Error())
	assert.Equal(t, "recommend: task is not eligible for planning", New(KindValidation, "recommend", "", ErrIneligibleTask).Error())
	assert.Equal(t,
		"recommend 42: task is not eligible for planning: missing estimation or load factor",
		IneligibleTask("recommend", "42", "missing estimation or load factor").Error())
}
