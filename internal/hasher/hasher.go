// Package hasher computes content fingerprints: streaming SHA-256
// digests read in bounded chunks so memory stays constant regardless of
// file size.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alibenameur/dupfinder/internal/scanner"
)

// DefaultChunkSize is the read buffer size used for streaming hashes.
const DefaultChunkSize = 32 * 1024

// Progress is invoked after each file is hashed (or fails), with the
// number of files finished so far and the path just processed. Calls
// are serialized.
type Progress func(done int, path string)

// Fingerprint computes the hex-encoded SHA-256 digest of a file's full
// content. The file is read through a chunkSize buffer; it is never
// loaded whole.
func Fingerprint(path string, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, file, buf); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Engine hashes batches of file records with a bounded worker pool.
type Engine struct {
	workers   int
	chunkSize int
}

// New creates an Engine. workers <= 0 selects a pool sized to the
// machine (capped to keep I/O contention reasonable); chunkSize <= 0
// selects DefaultChunkSize.
func New(workers, chunkSize int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Engine{workers: workers, chunkSize: chunkSize}
}

// HashAll fingerprints every record and returns the completed records
// in the same order they came in, no matter which worker finished
// first; grouping correctness must not depend on scheduling. Files that
// become unreadable mid-run are dropped from the output and recorded as
// advisories. Only context cancellation fails the batch.
func (e *Engine) HashAll(ctx context.Context, records []scanner.FileRecord, onProgress Progress) ([]scanner.FileRecord, []scanner.Advisory, error) {
	type slot struct {
		record scanner.FileRecord
		ok     bool
		err    error
	}

	slots := make([]slot, len(records))

	var mu sync.Mutex
	done := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			digest, err := Fingerprint(rec.Path, e.chunkSize)
			if err != nil {
				slots[i] = slot{record: rec, err: err}
			} else {
				rec.Fingerprint = digest
				slots[i] = slot{record: rec, ok: true}
			}

			if onProgress != nil {
				mu.Lock()
				done++
				onProgress(done, rec.Path)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	hashed := make([]scanner.FileRecord, 0, len(records))
	var advisories []scanner.Advisory
	for _, s := range slots {
		if s.ok {
			hashed = append(hashed, s.record)
			continue
		}
		advisories = append(advisories, scanner.Advisory{
			Path: s.record.Path,
			Op:   scanner.OpHash,
			Err:  s.err,
		})
	}

	return hashed, advisories, nil
}
