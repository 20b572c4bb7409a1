package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nadmax/teamplan/internal/team"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	teams           []team.Team
	departments     []team.Department
	affinities      []team.AffinityEntry
	teamCalls       int
	departmentCalls int
	affinityCalls   int
	err             error
}

func (l *countingLoader) ListTeams(context.Context) ([]team.Team, error) {
	l.teamCalls++
	return l.teams, l.err
}

func (l *countingLoader) ListDepartments(context.Context) ([]team.Department, error) {
	l.departmentCalls++
	return l.departments, l.err
}

func (l *countingLoader) ListAffinities(context.Context) ([]team.AffinityEntry, error) {
	l.affinityCalls++
	return l.affinities, l.err
}

func setupTestCache(t *testing.T, ttl time.Duration) (*LookupCache, *countingLoader, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	loader := &countingLoader{
		teams: []team.Team{
			{ID: 1, Name: "Core", Capacity: 3, IsActive: true},
			{ID: 2, Name: "Legacy", Capacity: 1, IsActive: false},
		},
		departments: []team.Department{{ID: 10, Name: "Finance"}, {ID: 11, Name: "Sales"}},
		affinities:  []team.AffinityEntry{{TeamID: 1, DepartmentID: 10, Level: 4}},
	}

	c, err := NewLookupCache(mr.Addr(), loader, ttl)
	require.NoError(t, err)

	return c, loader, mr
}

func TestNewLookupCache_InvalidAddress(t *testing.T) {
	_, err := NewLookupCache("invalid:99999", &countingLoader{}, time.Minute)
	assert.Error(t, err)
}

func TestNewLookupCache_DefaultTTL(t *testing.T) {
	c, _, mr := setupTestCache(t, 0)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	assert.Equal(t, DefaultTTL, c.TTL())
}

func TestTeams_LoadsOnceWithinTTL(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	first, err := c.Teams(ctx)
	require.NoError(t, err)
	second, err := c.Teams(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, loader.teamCalls)
	assert.True(t, mr.Exists("teamplan:lookup:teams"))
}

func TestTeams_ReloadsAfterTTL(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_, err := c.Teams(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = c.Teams(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.teamCalls)
}

func TestActiveTeams(t *testing.T) {
	c, _, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	teams, err := c.ActiveTeams(context.Background())

	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, int64(1), teams[0].ID)
}

func TestDepartmentID(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	id, err := c.DepartmentID(ctx, " finance ")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(10), *id)

	id, err = c.DepartmentID(ctx, "Marketing")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = c.DepartmentID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, id)

	assert.Equal(t, 1, loader.departmentCalls)
}

func TestAffinities(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	dept := int64(10)

	store, err := c.Affinities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, store.Affinity(1, &dept))

	_, err = c.Affinities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.affinityCalls)
}

func TestInvalidate(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_, err := c.Teams(ctx)
	require.NoError(t, err)
	_, err = c.Departments(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists("teamplan:lookup:teams"))
	assert.False(t, mr.Exists("teamplan:lookup:departments"))

	_, err = c.Teams(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.teamCalls)
}

func TestLoaderErrorIsNotCached(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	loader.err = errors.New("db unavailable")
	_, err := c.Teams(ctx)
	assert.EqualError(t, err, "db unavailable")
	assert.False(t, mr.Exists("teamplan:lookup:teams"))

	loader.err = nil
	teams, err := c.Teams(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 2)
}

func TestEmptyResultIsCached(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	loader.affinities = nil

	store, err := c.Affinities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	_, err = c.Affinities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.affinityCalls)
}

func TestCorruptEntryIsReloaded(t *testing.T) {
	c, loader, mr := setupTestCache(t, time.Minute)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	require.NoError(t, mr.Set("teamplan:lookup:teams", "not json"))

	teams, err := c.Teams(context.Background())

	require.NoError(t, err)
	assert.Len(t, teams, 2)
	assert.Equal(t, 1, loader.teamCalls)
}
