package reporter

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/alibenameur/dupfinder/internal/duplicates"
	"github.com/alibenameur/dupfinder/pkg/utils"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

// htmlView is the template's root object. Paths are pre-resolved into
// server URLs so the template stays logic-free.
type htmlView struct {
	GeneratedAt string
	Summaries   []htmlSummary
	TotalFiles  int
	Groups      []htmlGroup
	Stats       *htmlStats
	Advisories  []string
	Failures    []string
	HasServer   bool
}

type htmlSummary struct {
	Root           string
	FilesProcessed int
}

type htmlStats struct {
	FilesDeleted int
	SpaceFreed   string
}

type htmlGroup struct {
	Index       int
	Fingerprint string
	ShortHash   string
	FileCount   int
	Size        string
	Members     []htmlMember
}

type htmlMember struct {
	Path    string
	Status  string
	Kept    bool
	Deleted bool
	FileURL string
}

func (r *Reporter) reportHTML(data *Data) error {
	tmpl, err := template.ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return fmt.Errorf("failed to parse report template: %w", err)
	}
	return tmpl.Execute(r.writer, buildHTMLView(data))
}

func buildHTMLView(data *Data) htmlView {
	view := htmlView{
		GeneratedAt: data.GeneratedAt.Format(time.RFC1123),
		TotalFiles:  data.TotalFiles(),
		HasServer:   data.ServerAddr != "",
	}
	for _, s := range data.Summaries {
		view.Summaries = append(view.Summaries, htmlSummary{
			Root:           s.Root,
			FilesProcessed: s.FilesProcessed,
		})
	}
	if data.Stats != nil {
		view.Stats = &htmlStats{
			FilesDeleted: data.Stats.FilesDeleted,
			SpaceFreed:   utils.FormatBytes(data.Stats.BytesFreed),
		}
	}
	for i := range data.Groups {
		g := &data.Groups[i]
		hg := htmlGroup{
			Index:       i + 1,
			Fingerprint: g.Fingerprint,
			ShortHash:   g.ShortFingerprint(),
			FileCount:   len(g.Members),
			Size:        utils.FormatBytes(g.Size()),
		}
		for j, m := range g.Members {
			hg.Members = append(hg.Members, htmlMember{
				Path:    m.Path,
				Status:  m.Status.String(),
				Kept:    m.Status == duplicates.StatusKept || (m.Status == duplicates.StatusPresent && j == 0),
				Deleted: m.Status == duplicates.StatusDeleted,
				FileURL: fileURL(data.ServerAddr, m.Path),
			})
		}
		view.Groups = append(view.Groups, hg)
	}
	for _, adv := range data.Advisories {
		view.Advisories = append(view.Advisories, adv.String())
	}
	for _, failure := range data.Failures {
		view.Failures = append(view.Failures, failure.UserMessage())
	}
	return view
}

// fileURL builds the server URL that views or deletes one file.
func fileURL(addr, path string) string {
	if addr == "" {
		return ""
	}
	return "http://" + addr + "/?file_path=" + url.QueryEscape(path)
}
