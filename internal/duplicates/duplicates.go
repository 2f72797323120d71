// Package duplicates partitions fingerprinted file records into groups
// of identical content and orders them for reporting.
package duplicates

import (
	"fmt"
	"sort"

	"github.com/alibenameur/dupfinder/internal/scanner"
)

// Status tracks what happened to a group member during this run.
type Status int

const (
	StatusPresent Status = iota
	StatusKept
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusKept:
		return "kept"
	case StatusDeleted:
		return "deleted"
	default:
		return "present"
	}
}

// Member is one file inside a duplicate group. Status starts as present
// and is only changed by the deletion executor (or the single-file
// delete paths in the UI and server).
type Member struct {
	scanner.FileRecord
	Status Status
}

// Group is a set of two or more files sharing one fingerprint. Members
// keep their discovery order; the first member is the one the
// auto-clean policy retains.
type Group struct {
	Fingerprint string
	Members     []Member
}

// Size returns the content size of the group, taken from the first
// member. All members share it since their content is identical.
func (g *Group) Size() int64 {
	if len(g.Members) == 0 {
		return 0
	}
	return g.Members[0].Size
}

// ShortFingerprint returns the display form of the fingerprint,
// truncated to 16 characters. Every surface that abbreviates a hash
// uses this so the width cannot drift between them.
func (g *Group) ShortFingerprint() string {
	if len(g.Fingerprint) <= 16 {
		return g.Fingerprint
	}
	return g.Fingerprint[:16]
}

// RedundantBytes is the space occupied by every copy beyond the first.
func (g *Group) RedundantBytes() int64 {
	if len(g.Members) < 2 {
		return 0
	}
	return int64(len(g.Members)-1) * g.Size()
}

// GroupRecords partitions records by fingerprint and returns only the
// groups with at least two members. Group order follows the first
// discovery of each fingerprint and member order follows record order,
// so identical input always yields identical output.
func GroupRecords(records []scanner.FileRecord) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, rec := range records {
		if rec.Fingerprint == "" {
			continue
		}
		i, ok := index[rec.Fingerprint]
		if !ok {
			i = len(groups)
			index[rec.Fingerprint] = i
			groups = append(groups, Group{Fingerprint: rec.Fingerprint})
		}
		groups[i].Members = append(groups[i].Members, Member{FileRecord: rec})
	}

	dups := groups[:0]
	for _, g := range groups {
		if len(g.Members) >= 2 {
			dups = append(dups, g)
		}
	}
	return dups
}

// SortBySize orders groups by content size, largest first. The sort is
// stable: equal sizes keep their discovery order.
func SortBySize(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Size() > groups[j].Size()
	})
}

// Totals returns the number of redundant files (copies beyond the first
// of each group) and the bytes they occupy.
func Totals(groups []Group) (redundantFiles int, redundantBytes int64) {
	for i := range groups {
		redundantFiles += len(groups[i].Members) - 1
		redundantBytes += groups[i].RedundantBytes()
	}
	return redundantFiles, redundantBytes
}

// UniqueCount returns the number of distinct contents among the
// records: every fingerprint counts once.
func UniqueCount(records []scanner.FileRecord) int {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.Fingerprint == "" {
			continue
		}
		seen[rec.Fingerprint] = struct{}{}
	}
	return len(seen)
}

// Validate checks the structural invariants every group must satisfy. A
// violation means the pipeline itself is broken and the run must fail.
func Validate(groups []Group) error {
	for i := range groups {
		g := &groups[i]
		if len(g.Members) < 2 {
			return fmt.Errorf("group %s has %d member(s), need at least 2", g.Fingerprint, len(g.Members))
		}
		for _, m := range g.Members {
			if m.Fingerprint != g.Fingerprint {
				return fmt.Errorf("member %s carries fingerprint %s inside group %s",
					m.Path, m.Fingerprint, g.Fingerprint)
			}
		}
	}
	return nil
}
