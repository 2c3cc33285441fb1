package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boardsync/boardsync/internal/model"
	"github.com/boardsync/boardsync/internal/parse"
)

// RenderStats summarizes one store->text projection.
type RenderStats struct {
	Boards int
	Tasks  int
}

// Render regenerates the canonical board file for every known project from
// the current store snapshot.
//
// This direction is store-authoritative: it unconditionally overwrites the
// destination boards. It must not run while boards carry unsynced edits, or
// those edits are silently lost - run Check first.
func (e *Engine) Render(ctx context.Context, boardsDir string) (*RenderStats, error) {
	projects, err := e.db.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(boardsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create boards directory: %w", err)
	}

	stats := &RenderStats{}
	for _, project := range projects {
		tasks, err := e.db.ListProjectTasks(ctx, project.Slug)
		if err != nil {
			return nil, err
		}

		path := filepath.Join(boardsDir, project.Slug+".md")
		content := RenderBoard(project, tasks, readPreamble(path, project))

		if err := writeFileAtomic(path, []byte(content)); err != nil {
			return nil, fmt.Errorf("failed to write board %s: %w", path, err)
		}

		stats.Boards++
		stats.Tasks += len(tasks)
	}

	e.logger.Printf("Render complete: boards=%d tasks=%d", stats.Boards, stats.Tasks)
	return stats, nil
}

// RenderBoard produces the canonical text form of one project.
//
// All five status sections are emitted in fixed canonical order regardless
// of how the previous board was arranged. Within a section tasks are ordered
// by priority then id. The checkbox glyph derives purely from status: done
// renders checked, everything else unchecked.
func RenderBoard(project *model.Project, tasks []*model.Task, preamble []string) string {
	var b strings.Builder

	for _, line := range preamble {
		b.WriteString(line)
		b.WriteString("\n")
	}

	byStatus := make(map[model.Status][]*model.Task)
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	for _, status := range model.SectionOrder {
		b.WriteString("## ")
		b.WriteString(status.Heading())
		b.WriteString("\n\n")

		section := byStatus[status]
		sort.Slice(section, func(i, j int) bool {
			if section[i].Priority != section[j].Priority {
				return section[i].Priority < section[j].Priority
			}
			return section[i].ID < section[j].ID
		})

		for _, t := range section {
			b.WriteString(renderTaskLine(t))
			if t.Note != "" {
				b.WriteString("  note: ")
				b.WriteString(t.Note)
				b.WriteString("\n")
			}
		}
		if len(section) > 0 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderTaskLine(t *model.Task) string {
	check := " "
	if t.Status == model.StatusDone {
		check = "x"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] %s [%s]", check, t.ID, t.Priority)
	if t.Owner != "" {
		fmt.Fprintf(&b, " [%s]", t.Owner)
	}
	fmt.Fprintf(&b, " %s\n", t.Title)
	return b.String()
}

// readPreamble preserves the free-form text preceding the first recognized
// heading of the existing board. A missing board gets a minimal title line.
func readPreamble(path string, project *model.Project) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultPreamble(project)
	}
	preamble := parse.Preamble(string(data))
	// Trim trailing blank lines so regenerated boards stay stable; one
	// separator is added back below.
	for len(preamble) > 0 && strings.TrimSpace(preamble[len(preamble)-1]) == "" {
		preamble = preamble[:len(preamble)-1]
	}
	if len(preamble) == 0 {
		return defaultPreamble(project)
	}
	return append(preamble, "")
}

func defaultPreamble(project *model.Project) []string {
	return []string{"# " + project.Name, ""}
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// cannot leave a truncated board.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
