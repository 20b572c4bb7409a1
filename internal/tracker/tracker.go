// Package tracker talks to the external issue tracker that owns task status.
// It speaks the Redmine JSON REST dialect.
package tracker

import (
	"context"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type Issue struct {
	ID           int64
	Subject      string
	StatusName   string
	StartDate    *time.Time
	DueDate      *time.Time
	CustomFields []CustomField
}

type CustomField struct {
	ID    int64
	Name  string
	Value string
}

// Field returns the trimmed value of the custom field called name, matched
// case-insensitively, and whether it was present.
func (i *Issue) Field(name string) (string, bool) {
	for _, f := range i.CustomFields {
		if strings.EqualFold(f.Name, name) {
			return strings.TrimSpace(f.Value), true
		}
	}

	return "", false
}

type Client interface {
	FetchIssue(ctx context.Context, id int64) (*Issue, error)
	FetchIssues(ctx context.Context, ids []int64) ([]Issue, error)
	UpdateIssueDates(ctx context.Context, id int64, start, end time.Time) error
}
