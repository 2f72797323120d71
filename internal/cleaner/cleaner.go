// Package cleaner executes the auto-clean policy: in every duplicate
// group the first-discovered file is kept and the remaining copies are
// deleted reversibly. All decisions are computed before any deletion
// happens, so deciding and acting can never race.
package cleaner

import (
	"context"
	"fmt"

	"github.com/alibenameur/dupfinder/internal/duplicates"
	"github.com/alibenameur/dupfinder/internal/trash"
)

// Trasher performs one reversible deletion. *trash.Trash satisfies it;
// tests substitute fakes.
type Trasher interface {
	Move(path string) (trash.Method, error)
}

// Confirmer is the explicit consent gate in front of destructive runs.
// Implementations must never assume consent: when no interactive
// channel is available they answer false.
type Confirmer interface {
	Confirm(plan Plan) (bool, error)
}

// Plan summarizes what a clean run would delete. Built entirely before
// the first deletion.
type Plan struct {
	FilesToDelete int
	BytesToDelete int64
}

// Stats accumulates what a clean run actually freed.
type Stats struct {
	FilesDeleted int   `json:"files_deleted" yaml:"files_deleted"`
	BytesFreed   int64 `json:"bytes_freed" yaml:"bytes_freed"`
}

// DeletedFile records one successful deletion and how it was performed.
type DeletedFile struct {
	Path   string
	Size   int64
	Method trash.Method
}

// Result is the outcome of one clean run. Member statuses in the input
// groups are updated in place: exactly one kept member per group,
// deleted for each removed copy, and present for copies whose deletion
// failed.
type Result struct {
	Stats     Stats
	Deleted   []DeletedFile
	Errors    []*DeletionError
	Permanent int // deletions that degraded to permanent removal
	DryRun    bool
	Aborted   bool // user declined (or no interactive channel existed)
}

// Cleaner applies the keep-first deletion policy to duplicate groups.
type Cleaner struct {
	trasher   Trasher
	confirmer Confirmer
	dryRun    bool
}

// New creates a Cleaner around a Trasher.
func New(trasher Trasher) *Cleaner {
	return &Cleaner{trasher: trasher}
}

// SetConfirmer installs the consent gate. Without one, destructive runs
// proceed only in dry-run mode.
func (c *Cleaner) SetConfirmer(confirmer Confirmer) {
	c.confirmer = confirmer
}

// SetDryRun makes Clean report its decisions without touching the
// filesystem.
func (c *Cleaner) SetDryRun(on bool) {
	c.dryRun = on
}

// BuildPlan computes the deletion plan without acting on it: every
// member after the first of each group is a candidate.
func BuildPlan(groups []duplicates.Group) Plan {
	var plan Plan
	for i := range groups {
		for _, m := range groups[i].Members[1:] {
			plan.FilesToDelete++
			plan.BytesToDelete += m.Size
		}
	}
	return plan
}

// Clean runs the two-phase policy over the groups. Per-file failures
// are recorded and skipped, never fatal; the first member of each group
// always ends kept. Cancellation stops between files and already
// performed deletions stay final.
func (c *Cleaner) Clean(ctx context.Context, groups []duplicates.Group) (*Result, error) {
	if err := duplicates.Validate(groups); err != nil {
		return nil, fmt.Errorf("invalid duplicate groups: %w", err)
	}

	result := &Result{DryRun: c.dryRun}

	// Phase 1: decide. No filesystem access happens here.
	plan := BuildPlan(groups)
	if plan.FilesToDelete == 0 {
		return result, nil
	}

	if c.dryRun {
		for i := range groups {
			for _, m := range groups[i].Members[1:] {
				result.Deleted = append(result.Deleted, DeletedFile{Path: m.Path, Size: m.Size})
				result.Stats.FilesDeleted++
				result.Stats.BytesFreed += m.Size
			}
		}
		return result, nil
	}

	if c.confirmer == nil {
		result.Aborted = true
		return result, nil
	}
	ok, err := c.confirmer.Confirm(plan)
	if err != nil || !ok {
		// A broken prompt channel means no consent, same as "no".
		result.Aborted = true
		return result, nil
	}

	// Phase 2: act.
	for i := range groups {
		group := &groups[i]
		group.Members[0].Status = duplicates.StatusKept

		for j := 1; j < len(group.Members); j++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			member := &group.Members[j]
			method, err := c.trasher.Move(member.Path)
			if err != nil {
				result.Errors = append(result.Errors, CategorizeError(member.Path, err))
				continue // member stays present
			}

			member.Status = duplicates.StatusDeleted
			result.Deleted = append(result.Deleted, DeletedFile{
				Path:   member.Path,
				Size:   member.Size,
				Method: method,
			})
			result.Stats.FilesDeleted++
			result.Stats.BytesFreed += member.Size
			if method == trash.MethodPermanent {
				result.Permanent++
			}
		}
	}

	return result, nil
}

// DeleteOne applies the same reversible-deletion contract to a single
// file, for the HTML report's delete endpoint and the interactive
// browser. No confirmation gate: the caller's click is the consent.
func (c *Cleaner) DeleteOne(path string) (trash.Method, *DeletionError) {
	method, err := c.trasher.Move(path)
	if err != nil {
		return trash.MethodNone, CategorizeError(path, err)
	}
	return method, nil
}
