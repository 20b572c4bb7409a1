// Package cache keeps short-lived copies of team, department and affinity
// lookups in Redis. Entries are loaded lazily on the first miss and expire
// after the configured TTL; Invalidate drops them immediately.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nadmax/teamplan/internal/metrics"
	"github.com/nadmax/teamplan/internal/team"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 5 * time.Minute

	teamsEntry       = "teams"
	departmentsEntry = "departments"
	affinitiesEntry  = "affinities"
)

type Loader interface {
	ListTeams(ctx context.Context) ([]team.Team, error)
	ListDepartments(ctx context.Context) ([]team.Department, error)
	ListAffinities(ctx context.Context) ([]team.AffinityEntry, error)
}

type LookupCache struct {
	client *redis.Client
	loader Loader
	ttl    time.Duration
	prefix string
}

func NewLookupCache(redisAddr string, loader Loader, ttl time.Duration) (*LookupCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &LookupCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		prefix: "teamplan:lookup:",
	}, nil
}

func (c *LookupCache) TTL() time.Duration {
	return c.ttl
}

// Teams returns every team, active or not.
func (c *LookupCache) Teams(ctx context.Context) ([]team.Team, error) {
	return getOrLoad(ctx, c, teamsEntry, c.loader.ListTeams)
}

func (c *LookupCache) ActiveTeams(ctx context.Context) ([]team.Team, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return nil, err
	}

	return team.ActiveOnly(teams), nil
}

func (c *LookupCache) Departments(ctx context.Context) ([]team.Department, error) {
	return getOrLoad(ctx, c, departmentsEntry, c.loader.ListDepartments)
}

// DepartmentID resolves a department name, case-insensitively. It returns nil
// for an empty or unknown name.
func (c *LookupCache) DepartmentID(ctx context.Context, name string) (*int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	departments, err := c.Departments(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range departments {
		if strings.EqualFold(d.Name, name) {
			id := d.ID
			return &id, nil
		}
	}

	return nil, nil
}

func (c *LookupCache) Affinities(ctx context.Context) (*team.AffinityStore, error) {
	entries, err := getOrLoad(ctx, c, affinitiesEntry, c.loader.ListAffinities)
	if err != nil {
		return nil, err
	}

	return team.NewAffinityStore(entries), nil
}

// Invalidate removes every cached lookup so the next read reloads it.
func (c *LookupCache) Invalidate(ctx context.Context) error {
	keys := []string{c.key(teamsEntry), c.key(departmentsEntry), c.key(affinitiesEntry)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate lookup cache: %w", err)
	}

	return nil
}

func (c *LookupCache) Close() error {
	return c.client.Close()
}

func (c *LookupCache) key(entry string) string {
	return c.prefix + entry
}

func getOrLoad[T any](ctx context.Context, c *LookupCache, entry string, load func(context.Context) ([]T, error)) ([]T, error) {
	key := c.key(entry)

	data, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var out []T
		if err := json.Unmarshal([]byte(data), &out); err == nil {
			metrics.RecordCacheHit(entry)
			return out, nil
		}
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("failed to read %s from cache: %w", entry, err)
	}

	metrics.RecordCacheMiss(entry)

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", entry, err)
	}

	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to write %s to cache: %w", entry, err)
	}

	return out, nil
}
