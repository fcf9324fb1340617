// ABOUTME: Resolves command-line references to projects, companies, people and missions
// ABOUTME: A reference is either an ID or a case-insensitive name
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
)

// resolveProject loads a project by ID, exact name or tender reference.
func resolveProject(ctx context.Context, repo *db.ProjectRepository, ref string) (*models.Project, error) {
	if ref == "" {
		return nil, fmt.Errorf("--project is required")
	}

	if id, err := uuid.Parse(ref); err == nil {
		project, err := repo.Load(ctx, id)
		if err != nil {
			if errors.Is(err, db.ErrProjectNotFound) {
				return nil, fmt.Errorf("project not found: %s", ref)
			}
			return nil, fmt.Errorf("failed to load project: %w", err)
		}
		return project, nil
	}

	project, err := repo.FindByName(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if project != nil {
		return project, nil
	}

	candidates, err := repo.List(ctx, ref, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	for _, c := range candidates {
		if c.Reference != "" && strings.EqualFold(c.Reference, ref) {
			return repo.Load(ctx, c.ID)
		}
	}
	return nil, fmt.Errorf("project not found: %s", ref)
}

func findCompany(project *models.Project, ref string) (*models.ParticipatingCompany, error) {
	if ref == "" {
		return nil, fmt.Errorf("--company is required")
	}
	for i := range project.Companies {
		c := &project.Companies[i]
		if c.ID.String() == ref || strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("company not found in project: %s", ref)
}

func findPerson(company *models.ParticipatingCompany, ref string) (*models.MobilizedPerson, error) {
	if ref == "" {
		return nil, fmt.Errorf("--person is required")
	}
	for i := range company.People {
		p := &company.People[i]
		if p.ID.String() == ref || strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("person not found in %s: %s", company.Name, ref)
}

// findMission matches a mission by ID, sigle or name.
func findMission(project *models.Project, ref string) (*models.Mission, error) {
	if ref == "" {
		return nil, fmt.Errorf("--mission is required")
	}
	for i := range project.Missions {
		m := &project.Missions[i]
		if m.ID.String() == ref || strings.EqualFold(m.Name, ref) || (m.Sigle != "" && strings.EqualFold(m.Sigle, ref)) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("mission not found in project: %s", ref)
}

// visitedFlags returns the names of the flags given on the command line.
func visitedFlags(fs *flag.FlagSet) map[string]bool {
	visited := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})
	return visited
}
