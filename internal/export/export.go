// Package export renders store state as rich text (HTML) for import into a
// third-party notes application.
//
// The export is a read-only downstream consumer of the store; it is not part
// of the sync engine's contract.
package export

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/boardsync/boardsync/internal/model"
	"github.com/boardsync/boardsync/internal/store"
)

var boardTemplate = template.Must(template.New("board").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Project.Name}}</title></head>
<body>
<h1>{{.Project.Name}}</h1>
{{if .Project.Description}}<p><em>{{.Project.Description}}</em></p>{{end}}
<p><small>Exported {{.ExportedAt}}</small></p>
{{range .Sections}}
<h2>{{.Heading}}</h2>
{{if .Tasks}}<ul>
{{range .Tasks}}<li><b>{{.ID}}</b> [{{.Priority}}]{{if .Owner}} ({{.Owner}}){{end}} {{.Title}}{{if .Note}}<br><i>{{.Note}}</i>{{end}}</li>
{{end}}</ul>{{else}}<p><small>empty</small></p>{{end}}
{{end}}
</body>
</html>
`))

type section struct {
	Heading string
	Tasks   []*model.Task
}

type boardPage struct {
	Project    *model.Project
	Sections   []section
	ExportedAt string
}

// Run writes one HTML file per project into outDir. Returns the number of
// files written.
func Run(ctx context.Context, db *store.DB, outDir string) (int, error) {
	projects, err := db.ListProjects(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	written := 0
	for _, project := range projects {
		tasks, err := db.ListProjectTasks(ctx, project.Slug)
		if err != nil {
			return written, err
		}

		page := buildPage(project, tasks)
		path := filepath.Join(outDir, project.Slug+".html")

		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("failed to create export file %s: %w", path, err)
		}
		if err := boardTemplate.Execute(f, page); err != nil {
			_ = f.Close()
			return written, fmt.Errorf("failed to render export for %s: %w", project.Slug, err)
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("failed to close export file %s: %w", path, err)
		}
		written++
	}
	return written, nil
}

func buildPage(project *model.Project, tasks []*model.Task) boardPage {
	byStatus := make(map[model.Status][]*model.Task)
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	page := boardPage{
		Project:    project,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, status := range model.SectionOrder {
		sec := section{Heading: status.Heading(), Tasks: byStatus[status]}
		sort.Slice(sec.Tasks, func(i, j int) bool {
			if sec.Tasks[i].Priority != sec.Tasks[j].Priority {
				return sec.Tasks[i].Priority < sec.Tasks[j].Priority
			}
			return sec.Tasks[i].ID < sec.Tasks[j].ID
		})
		page.Sections = append(page.Sections, sec)
	}
	return page
}
