// Package registry parses the project registry file (projects.toml).
//
// The registry is an external collaborator: it supplies project metadata the
// operator maintains by hand. Tasks referencing a slug missing from both the
// registry and the store get a synthesized minimal project during apply; the
// registry is where the operator corrects those afterwards.
package registry

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/boardsync/boardsync/internal/model"
)

// File is the on-disk shape of projects.toml.
type File struct {
	Projects []Entry `toml:"project"`
}

// Entry is one [[project]] block.
type Entry struct {
	Slug        string `toml:"slug"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Status      string `toml:"status"`
}

// Load reads and validates the registry. A missing file is not an error:
// the registry is optional and projects can be synthesized from board slugs.
func Load(path string) ([]*model.Project, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}

	var projects []*model.Project
	for i, entry := range f.Projects {
		p := &model.Project{
			Slug:        entry.Slug,
			Name:        entry.Name,
			Description: entry.Description,
			Status:      model.ProjectStatus(entry.Status),
		}
		if p.Status == "" {
			p.Status = model.ProjectActive
		}
		if p.Name == "" {
			p.Name = model.NameFromSlug(p.Slug)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("registry %s: project %d: %w", path, i+1, err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// DefaultContent is written by bootstrap as a starting registry.
const DefaultContent = `# boardsync project registry.
# One [[project]] block per project; the slug must match the board file name
# (boards/<slug>.md).

# [[project]]
# slug = "payments"
# name = "Payments"
# description = "Payment pipeline work"
# status = "active"
`
