// Package store persists solver runs so results can be compared across
// invocations of the command.
package store

import (
	"context"
	"time"
)

// Run is one recorded solve of an instance.
type Run struct {
	ID        string
	Instance  string
	Kind      string
	Status    string
	Objective int
	Limited   bool
	Elapsed   time.Duration
	Nodes     int
	Intervals []Assignment
	CreatedAt time.Time
}

// Assignment is the decoded placement of one present interval.
type Assignment struct {
	Name   string `json:"name"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Length int    `json:"length"`
}

// ListOptions filters and pages ListRuns.
type ListOptions struct {
	Instance string
	Limit    int
	Offset   int
}

// Clamp applies default and maximum page sizes.
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// Store records solver runs.
type Store interface {
	CreateRun(ctx context.Context, r *Run) error
	// GetRun returns nil, nil when no run has the id.
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]*Run, int, error)
	// BestRun returns the run of instance with the smallest objective among
	// runs that found a solution, or nil when there is none.
	BestRun(ctx context.Context, instance string) (*Run, error)
	DeleteRun(ctx context.Context, id string) error

	Close() error
	Migrate(ctx context.Context) error
}
