// Package parse turns board markdown into structured task records.
//
// A board is one markdown file per project. Recognized section headings set
// the status context for the task lines below them; text outside a
// recognized section is ignored for task extraction. A task line is a
// checkbox item with an id token, up to two bracketed tags, and a free-text
// title. An indented "note:" line immediately after a task line attaches to
// that task.
//
// The checkbox glyph is a display artifact only. Status comes from the
// section heading, never from the checkbox state.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/boardsync/boardsync/internal/model"
)

// AnomalyKind classifies a recoverable parse problem.
type AnomalyKind string

const (
	// AnomalyMalformed marks a line that looks like a task (checkbox
	// present) but fails to fully match the grammar.
	AnomalyMalformed AnomalyKind = "malformed"

	// AnomalyAmbiguousTags marks a task line whose two bracket tags cannot
	// be classified: either both or neither match the priority pattern.
	// The parser skips the line rather than guessing.
	AnomalyAmbiguousTags AnomalyKind = "ambiguous_tags"
)

// Anomaly records a skipped line so callers can surface it as a warning
// instead of silently dropping input.
type Anomaly struct {
	Kind   AnomalyKind
	Source string
	Line   int
	Text   string
	Reason string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s:%d: %s (%s)", a.Source, a.Line, a.Reason, a.Kind)
}

// Result holds the parsed records for one board plus any anomalies.
//
// Tasks preserve source order, but order is not semantically meaningful;
// downstream consumers re-sort.
type Result struct {
	Tasks     []*model.Task
	Anomalies []Anomaly
}

// The task id token must not open with a bracket: a tag in id position
// means the id is missing and the line is malformed.
var (
	headingRe  = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
	taskRe     = regexp.MustCompile(`^\s*-\s+\[( |x|X)\]\s+([^\s\[\]]\S*)\s*(.*)$`)
	tagRe      = regexp.MustCompile(`^\[([^\[\]]+)\]\s*`)
	priorityRe = regexp.MustCompile(`^[Pp][0-4]$`)
	noteRe     = regexp.MustCompile(`^\s+note:\s*(.*)$`)
)

// headingStatus maps a normalized heading text to a board status.
// Matching is case-insensitive.
func headingStatus(text string) (model.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "backlog":
		return model.StatusBacklog, true
	case "in progress":
		return model.StatusInProgress, true
	case "pending validation":
		return model.StatusPendingValidation, true
	case "blocked":
		return model.StatusBlocked, true
	case "done":
		return model.StatusDone, true
	}
	return "", false
}

// ParseFile parses a board file. The project slug is derived from the file
// name (boards/payments.md -> "payments").
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open board %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, ProjectSlug(path), path)
}

// ProjectSlug derives the project slug from a board file path.
func ProjectSlug(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".md")
}

// Parse reads board content and extracts task records.
//
// Malformed task lines and ambiguous tag pairs are recorded as anomalies and
// skipped; parsing continues with the rest of the source.
func Parse(r io.Reader, project, source string) (*Result, error) {
	res := &Result{}

	var current model.Status
	inSection := false
	var lastTask *model.Task

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := headingRe.FindStringSubmatch(line); m != nil {
			lastTask = nil
			if status, ok := headingStatus(m[1]); ok {
				current = status
				inSection = true
			} else {
				inSection = false
			}
			continue
		}

		if m := noteRe.FindStringSubmatch(line); m != nil && lastTask != nil {
			lastTask.Note = strings.TrimSpace(m[1])
			lastTask = nil
			continue
		}

		m := taskRe.FindStringSubmatch(line)
		if m == nil {
			// A checkbox marker without a parseable id/title is a
			// recoverable anomaly, not a fatal error.
			if inSection && strings.Contains(line, "- [") {
				res.Anomalies = append(res.Anomalies, Anomaly{
					Kind:   AnomalyMalformed,
					Source: source,
					Line:   lineNo,
					Text:   line,
					Reason: "checkbox line does not match task grammar",
				})
			}
			lastTask = nil
			continue
		}

		if !inSection {
			// Task-looking line outside any recognized section: ignored.
			lastTask = nil
			continue
		}

		id := m[2]
		rest := m[3]

		task := &model.Task{
			ID:       id,
			Project:  project,
			Status:   current,
			Priority: model.DefaultPriority,
			Source:   source,
		}

		tags, title := splitTags(rest)
		if len(tags) > 2 {
			res.Anomalies = append(res.Anomalies, Anomaly{
				Kind:   AnomalyMalformed,
				Source: source,
				Line:   lineNo,
				Text:   line,
				Reason: fmt.Sprintf("too many bracket tags (%d)", len(tags)),
			})
			lastTask = nil
			continue
		}

		if err := classifyTags(task, tags); err != nil {
			res.Anomalies = append(res.Anomalies, Anomaly{
				Kind:   AnomalyAmbiguousTags,
				Source: source,
				Line:   lineNo,
				Text:   line,
				Reason: err.Error(),
			})
			lastTask = nil
			continue
		}

		task.Title = strings.TrimSpace(title)
		if task.Title == "" {
			res.Anomalies = append(res.Anomalies, Anomaly{
				Kind:   AnomalyMalformed,
				Source: source,
				Line:   lineNo,
				Text:   line,
				Reason: "task line has no title",
			})
			lastTask = nil
			continue
		}

		res.Tasks = append(res.Tasks, task)
		lastTask = task
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read board %s: %w", source, err)
	}

	return res, nil
}

// Preamble returns the free-form lines preceding the first recognized
// section heading in board content. The projector preserves these verbatim
// when regenerating a board.
func Preamble(content string) []string {
	var preamble []string
	for _, line := range strings.Split(content, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if _, ok := headingStatus(m[1]); ok {
				return preamble
			}
		}
		preamble = append(preamble, line)
	}
	return preamble
}

// splitTags peels leading [tag] brackets off the remainder of a task line.
func splitTags(rest string) (tags []string, title string) {
	rest = strings.TrimSpace(rest)
	for {
		m := tagRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		tags = append(tags, strings.TrimSpace(m[1]))
		rest = rest[len(m[0]):]
	}
	return tags, rest
}

// classifyTags assigns priority and owner from up to two bracket tags.
//
// Classification is content-driven, not positional: the tag matching the
// priority pattern is the priority, the other (if present) is the owner.
// Two tags where both or neither match the pattern cannot be classified.
func classifyTags(task *model.Task, tags []string) error {
	switch len(tags) {
	case 0:
		return nil
	case 1:
		if priorityRe.MatchString(tags[0]) {
			task.Priority = model.Priority(strings.ToUpper(tags[0]))
		} else {
			task.Owner = tags[0]
		}
		return nil
	case 2:
		first := priorityRe.MatchString(tags[0])
		second := priorityRe.MatchString(tags[1])
		switch {
		case first && second:
			return fmt.Errorf("both tags %q and %q match the priority pattern", tags[0], tags[1])
		case !first && !second:
			return fmt.Errorf("neither tag %q nor %q matches the priority pattern", tags[0], tags[1])
		case first:
			task.Priority = model.Priority(strings.ToUpper(tags[0]))
			task.Owner = tags[1]
		default:
			task.Priority = model.Priority(strings.ToUpper(tags[1]))
			task.Owner = tags[0]
		}
		return nil
	}
	return fmt.Errorf("too many tags")
}

// ParseDir parses every .md board in dir into a single combined result.
// A board that cannot be read aborts the parse; per-line problems accumulate
// as anomalies.
func ParseDir(dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read boards directory: %w", err)
	}

	res := &Result{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		br, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		res.Tasks = append(res.Tasks, br.Tasks...)
		res.Anomalies = append(res.Anomalies, br.Anomalies...)
	}
	return res, nil
}
