// Package scanner walks directory trees and produces the file records
// the duplicate pipeline operates on.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alibenameur/dupfinder/internal/exclude"
)

// ErrNoValidRoots is returned when none of the requested roots could be
// scanned at all. Individual bad roots only produce advisories.
var ErrNoValidRoots = errors.New("no valid directories to scan")

// Scanner walks one or more root directories, applying an exclusion
// rule set and yielding only regular files. Walk order is lexical per
// directory, so an unchanged tree scans identically across runs; the
// keep-first auto-clean policy depends on that.
type Scanner struct {
	rules exclude.Rules
}

// New creates a Scanner with the given exclusion rules.
func New(rules exclude.Rules) *Scanner {
	return &Scanner{rules: rules}
}

// Scan traverses every root and collects file records, per-root
// summaries and advisories. Symlinks are not followed. A missing or
// unreadable root yields zero files for that root plus an advisory;
// only the total absence of any scannable root is an error, and the
// partial Result is still returned alongside it.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*Result, error) {
	result := &Result{}

	validRoots := 0
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			result.Advisories = append(result.Advisories, Advisory{Path: root, Op: OpRootAccess, Err: err})
			result.Summaries = append(result.Summaries, Summary{Root: root})
			continue
		}

		info, err := os.Stat(absRoot)
		switch {
		case err != nil:
			result.Advisories = append(result.Advisories, Advisory{Path: absRoot, Op: OpRootMissing, Err: err})
			result.Summaries = append(result.Summaries, Summary{Root: absRoot})
			continue
		case !info.IsDir():
			result.Advisories = append(result.Advisories, Advisory{Path: absRoot, Op: OpRootMissing, Err: errors.New("not a directory")})
			result.Summaries = append(result.Summaries, Summary{Root: absRoot})
			continue
		}

		summary, rootOK, err := s.walkRoot(ctx, absRoot, result)
		result.Summaries = append(result.Summaries, summary)
		if err != nil {
			return result, err
		}
		if rootOK {
			validRoots++
		}
	}

	if validRoots == 0 {
		return result, ErrNoValidRoots
	}
	return result, nil
}

// walkRoot walks a single root. Only context cancellation aborts the
// walk; every other failure becomes an advisory. The returned bool says
// whether the root directory itself could be read, which is what makes
// the root count as scanned.
func (s *Scanner) walkRoot(ctx context.Context, root string, result *Result) (Summary, bool, error) {
	summary := Summary{Root: root}
	rootOK := true

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			result.Advisories = append(result.Advisories, Advisory{Path: path, Op: OpWalk, Err: err})
			if path == root {
				rootOK = false
				return nil
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path != root && s.rules.Match(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		// Classify the entry once: directories descend, anything that
		// is not a regular file (symlinks, devices, sockets) is skipped
		// silently.
		switch {
		case d.IsDir():
			return nil
		case !d.Type().IsRegular():
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Advisories = append(result.Advisories, Advisory{Path: path, Op: OpStat, Err: err})
			return nil
		}

		result.Records = append(result.Records, FileRecord{Path: path, Size: info.Size()})
		summary.FilesProcessed++
		return nil
	})

	return summary, rootOK, err
}
