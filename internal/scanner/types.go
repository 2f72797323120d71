package scanner

// FileRecord describes one regular file discovered during a scan. The
// scanner fills Path and Size; the fingerprint engine fills Fingerprint.
// A record is immutable once fingerprinted.
type FileRecord struct {
	Path        string `json:"path" yaml:"path"`
	Size        int64  `json:"size" yaml:"size"`
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

// Summary counts the files yielded for one scan root.
type Summary struct {
	Root           string `json:"root" yaml:"root"`
	FilesProcessed int    `json:"files_processed" yaml:"files_processed"`
}

// Advisory records a non-fatal condition encountered during a run: a
// missing root, an unreadable entry, a file that vanished before it
// could be hashed. Advisories are surfaced in the report so no file is
// dropped without an accounting trace.
type Advisory struct {
	Path string `json:"path" yaml:"path"`
	Op   string `json:"op" yaml:"op"`
	Err  error  `json:"-" yaml:"-"`
}

// Advisory operations.
const (
	OpRootMissing = "root-missing"
	OpRootAccess  = "root-access"
	OpWalk        = "walk"
	OpStat        = "stat"
	OpHash        = "hash"
)

func (a Advisory) String() string {
	if a.Err == nil {
		return a.Op + ": " + a.Path
	}
	return a.Op + ": " + a.Path + ": " + a.Err.Error()
}

// Result is everything one scan produced.
type Result struct {
	Records    []FileRecord
	Summaries  []Summary
	Advisories []Advisory
}

// TotalFiles returns the number of files yielded across all roots.
func (r *Result) TotalFiles() int {
	total := 0
	for _, s := range r.Summaries {
		total += s.FilesProcessed
	}
	return total
}
