package model

import (
	"fmt"
	"strings"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive ProjectStatus = "active"
	ProjectPaused ProjectStatus = "paused"
	ProjectDone   ProjectStatus = "done"
)

// Valid reports whether s is a known project lifecycle state.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectPaused, ProjectDone:
		return true
	}
	return false
}

// Project is the owning container a task references by slug.
type Project struct {
	Slug        string        `json:"slug"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
}

// Validate checks the project's field constraints.
func (p *Project) Validate() error {
	if p.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid project status %q", p.Status)
	}
	return nil
}

// SynthesizeProject builds a minimal project record for an unknown slug.
// The name is derived from the slug; the operator is expected to correct it
// in the registry later.
func SynthesizeProject(slug string) *Project {
	return &Project{
		Slug:        slug,
		Name:        NameFromSlug(slug),
		Description: "",
		Status:      ProjectActive,
	}
}

// NameFromSlug turns "payment-retries" into "Payment Retries".
func NameFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
