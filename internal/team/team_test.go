package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAffinity(t *testing.T) {
	dept := int64(10)
	other := int64(11)
	store := NewAffinityStore([]AffinityEntry{
		{TeamID: 1, DepartmentID: 10, Level: 5},
		{TeamID: 2, DepartmentID: 10, Level: 3},
		{TeamID: 3, DepartmentID: 10, Level: 9},
		{TeamID: 4, DepartmentID: 10, Level: 0},
	})

	tests := []struct {
		name   string
		teamID int64
		dept   *int64
		want   int
	}{
		{"known entry", 1, &dept, 5},
		{"other team", 2, &dept, 3},
		{"missing entry defaults to lowest", 1, &other, DefaultAffinity},
		{"nil department defaults to lowest", 1, nil, DefaultAffinity},
		{"level above range is clamped", 3, &dept, MaxAffinity},
		{"level below range is clamped", 4, &dept, MinAffinity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.Affinity(tt.teamID, tt.dept))
		})
	}
}

func TestAffinity_NilStore(t *testing.T) {
	var store *AffinityStore
	dept := int64(1)

	assert.Equal(t, DefaultAffinity, store.Affinity(1, &dept))
	assert.Equal(t, 0, store.Len())
}

func TestNewAffinityStore_DuplicateOverrides(t *testing.T) {
	dept := int64(10)
	store := NewAffinityStore([]AffinityEntry{
		{TeamID: 1, DepartmentID: 10, Level: 2},
		{TeamID: 1, DepartmentID: 10, Level: 4},
	})

	assert.Equal(t, 4, store.Affinity(1, &dept))
	assert.Equal(t, 1, store.Len())
}

func TestActiveOnly(t *testing.T) {
	teams := []Team{
		{ID: 1, IsActive: true},
		{ID: 2, IsActive: false},
		{ID: 3, IsActive: true},
	}

	active := ActiveOnly(teams)

	assert.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].ID)
	assert.Equal(t, int64(3), active[1].ID)
}
