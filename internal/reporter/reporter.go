// Package reporter renders the outcome of a run: the scan summary, the
// ordered duplicate groups with member statuses, cleanup statistics and
// advisories. Text and HTML are two renderings of the same data; JSON
// and YAML exist for machine consumers.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alibenameur/dupfinder/internal/cleaner"
	"github.com/alibenameur/dupfinder/internal/duplicates"
	"github.com/alibenameur/dupfinder/internal/scanner"
	"github.com/alibenameur/dupfinder/pkg/utils"
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatHTML OutputFormat = "html"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// Data is everything a report can show. Groups arrive already ordered;
// the reporter never re-sorts them.
type Data struct {
	GeneratedAt time.Time
	Summaries   []scanner.Summary
	Groups      []duplicates.Group
	Stats       *cleaner.Stats // non-nil when auto-clean ran
	Advisories  []scanner.Advisory
	Failures    []*cleaner.DeletionError
	ServerAddr  string // where the delete/media server listens
}

// TotalFiles is the number of files processed across all roots.
func (d *Data) TotalFiles() int {
	total := 0
	for _, s := range d.Summaries {
		total += s.FilesProcessed
	}
	return total
}

// Reporter writes reports in one format to one writer.
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a Reporter.
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{writer: writer, format: format}
}

// Report renders the data.
func (r *Reporter) Report(data *Data) error {
	switch r.format {
	case FormatText:
		return r.reportText(data)
	case FormatHTML:
		return r.reportHTML(data)
	case FormatJSON:
		return r.reportJSON(data)
	case FormatYAML:
		return r.reportYAML(data)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

const rule = "============================================================"
const thinRule = "------------------------------------------------------------"

func (r *Reporter) reportText(data *Data) error {
	w := r.writer

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "DUPLICATE FILE FINDER REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SCAN SUMMARY:")
	fmt.Fprintln(w, thinRule)
	for _, s := range data.Summaries {
		fmt.Fprintf(w, "  Directory: %s\n", s.Root)
		fmt.Fprintf(w, "    Files processed: %d\n", s.FilesProcessed)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total files processed: %d\n", data.TotalFiles())
	fmt.Fprintln(w)

	if data.Stats != nil {
		fmt.Fprintln(w, "AUTO-CLEAN SUMMARY:")
		fmt.Fprintln(w, thinRule)
		fmt.Fprintf(w, "  Files deleted: %d\n", data.Stats.FilesDeleted)
		fmt.Fprintf(w, "  Space freed: %s\n", utils.FormatBytes(data.Stats.BytesFreed))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "DUPLICATES FOUND:")
	fmt.Fprintln(w, thinRule)
	if len(data.Groups) == 0 {
		fmt.Fprintln(w, "  No duplicate files detected.")
	}
	for i := range data.Groups {
		g := &data.Groups[i]
		fmt.Fprintf(w, "  Group %d (Hash: %s..., %d files, %s):\n",
			i+1, g.ShortFingerprint(), len(g.Members), utils.FormatBytes(g.Size()))
		for j, m := range g.Members {
			switch {
			case m.Status == duplicates.StatusDeleted:
				fmt.Fprintf(w, "    - %s [DELETED]\n", m.Path)
			case m.Status == duplicates.StatusKept || j == 0:
				fmt.Fprintf(w, "    - %s [KEPT]\n", m.Path)
			default:
				fmt.Fprintf(w, "    - %s\n", m.Path)
			}
		}
		fmt.Fprintln(w)
	}

	if len(data.Failures) > 0 {
		fmt.Fprintln(w, "DELETION FAILURES:")
		fmt.Fprintln(w, thinRule)
		for _, failure := range data.Failures {
			fmt.Fprintf(w, "  %s\n", failure.UserMessage())
		}
		fmt.Fprintln(w)
	}

	if len(data.Advisories) > 0 {
		fmt.Fprintln(w, "ADVISORIES:")
		fmt.Fprintln(w, thinRule)
		fmt.Fprintf(w, "  %d path(s) skipped or unreadable:\n", len(data.Advisories))
		for _, adv := range data.Advisories {
			fmt.Fprintf(w, "  - %s\n", adv)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	return nil
}

// serializable mirrors Data for the machine-readable formats.
type serializable struct {
	Timestamp      string            `json:"timestamp" yaml:"timestamp"`
	Summaries      []scanner.Summary `json:"scan_summary" yaml:"scan_summary"`
	TotalFiles     int               `json:"total_files" yaml:"total_files"`
	GroupCount     int               `json:"duplicate_groups" yaml:"duplicate_groups"`
	RedundantFiles int               `json:"redundant_files" yaml:"redundant_files"`
	RedundantBytes int64             `json:"redundant_bytes" yaml:"redundant_bytes"`
	Groups         []groupOut        `json:"groups" yaml:"groups"`
	Stats          *cleaner.Stats    `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	Advisories     []string          `json:"advisories,omitempty" yaml:"advisories,omitempty"`
	Failures       []string          `json:"deletion_failures,omitempty" yaml:"deletion_failures,omitempty"`
}

type groupOut struct {
	Fingerprint string      `json:"fingerprint" yaml:"fingerprint"`
	Size        int64       `json:"size" yaml:"size"`
	Members     []memberOut `json:"members" yaml:"members"`
}

type memberOut struct {
	Path   string `json:"path" yaml:"path"`
	Status string `json:"status" yaml:"status"`
}

func toSerializable(data *Data) serializable {
	redundantFiles, redundantBytes := duplicates.Totals(data.Groups)
	out := serializable{
		Timestamp:      data.GeneratedAt.Format(time.RFC3339),
		Summaries:      data.Summaries,
		TotalFiles:     data.TotalFiles(),
		GroupCount:     len(data.Groups),
		RedundantFiles: redundantFiles,
		RedundantBytes: redundantBytes,
		Stats:          data.Stats,
	}
	for i := range data.Groups {
		g := &data.Groups[i]
		og := groupOut{Fingerprint: g.Fingerprint, Size: g.Size()}
		for _, m := range g.Members {
			og.Members = append(og.Members, memberOut{Path: m.Path, Status: m.Status.String()})
		}
		out.Groups = append(out.Groups, og)
	}
	for _, adv := range data.Advisories {
		out.Advisories = append(out.Advisories, adv.String())
	}
	for _, failure := range data.Failures {
		out.Failures = append(out.Failures, failure.UserMessage())
	}
	return out
}

func (r *Reporter) reportJSON(data *Data) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toSerializable(data))
}

func (r *Reporter) reportYAML(data *Data) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(toSerializable(data))
}

// SaveToFile writes the report to a file.
func SaveToFile(data *Data, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return New(file, format).Report(data)
}
