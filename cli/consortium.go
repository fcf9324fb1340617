// ABOUTME: Consortium CLI commands
// ABOUTME: Manage the companies, people and missions of a project
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
)

// AddCompanyCommand adds a company to a project's consortium
func AddCompanyCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("company add", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	name := fs.String("name", "", "Company name (required)")
	presentation := fs.String("presentation", "", "Company presentation")
	equipment := fs.String("equipment", "", "Technical means and equipment")
	mandataire := fs.Bool("mandataire", false, "Make this company the mandataire")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--name is required")
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}

	added := project.AddCompany(models.ParticipatingCompany{
		Name:         *name,
		Presentation: *presentation,
		Equipment:    *equipment,
	})
	if *mandataire {
		id := added.ID
		project.MandataireID = &id
	}

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to add company: %w", err)
	}

	fmt.Printf("✓ Company added: %s (ID: %s)\n", added.Name, added.ID)
	if project.MandataireID != nil && *project.MandataireID == added.ID {
		fmt.Println("  Role: mandataire")
	}
	return nil
}

// RemoveCompanyCommand removes a company and its imposed prices
func RemoveCompanyCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("company remove", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	companyRef := fs.String("company", "", "Company ID or name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	company, err := findCompany(project, *companyRef)
	if err != nil {
		return err
	}
	id, name := company.ID, company.Name

	project.RemoveCompany(id)
	for _, m := range project.Missions {
		project.PriceConstraints = budget.RemoveConstraint(project.PriceConstraints, m.ID, id)
	}

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to remove company: %w", err)
	}

	fmt.Printf("✓ Company removed: %s\n", name)
	return nil
}

// SetMandataireCommand designates the lead company of the consortium
func SetMandataireCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("company mandataire", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	companyRef := fs.String("company", "", "Company ID or name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	company, err := findCompany(project, *companyRef)
	if err != nil {
		return err
	}

	id := company.ID
	project.MandataireID = &id
	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to set mandataire: %w", err)
	}

	fmt.Printf("✓ Mandataire: %s\n", company.Name)
	return nil
}

// AddPersonCommand adds a person to a company
func AddPersonCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("person add", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	companyRef := fs.String("company", "", "Company ID or name (required)")
	name := fs.String("name", "", "Person name (required)")
	role := fs.String("role", "", "Role in the team")
	rate := fs.Float64("rate", 0, "Daily rate, excluding tax")
	cvFile := fs.String("cv-file", "", "Plain-text CV file")
	representative := fs.Bool("representative", false, "Make this person the company representative")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--name is required")
	}

	person := models.MobilizedPerson{Name: *name, Role: *role}
	if visitedFlags(fs)["rate"] {
		if *rate < 0 {
			return fmt.Errorf("--rate must not be negative")
		}
		r := *rate
		person.DailyRate = &r
	}
	if *cvFile != "" {
		data, err := os.ReadFile(*cvFile)
		if err != nil {
			return fmt.Errorf("failed to read CV: %w", err)
		}
		person.CV = string(data)
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	company, err := findCompany(project, *companyRef)
	if err != nil {
		return err
	}

	added := company.AddPerson(person)
	if *representative {
		id := added.ID
		company.SetRepresentative(&id)
	}

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to add person: %w", err)
	}

	fmt.Printf("✓ Person added: %s (ID: %s)\n", added.Name, added.ID)
	fmt.Printf("  Company: %s\n", company.Name)
	if added.DailyRate != nil {
		fmt.Printf("  Daily rate: %s\n", report.Euro(*added.DailyRate))
	}
	return nil
}

// RemovePersonCommand removes a person from a company
func RemovePersonCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("person remove", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	companyRef := fs.String("company", "", "Company ID or name (required)")
	personRef := fs.String("person", "", "Person ID or name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	company, err := findCompany(project, *companyRef)
	if err != nil {
		return err
	}
	person, err := findPerson(company, *personRef)
	if err != nil {
		return err
	}
	id, name := person.ID, person.Name

	company.RemovePerson(id)
	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to remove person: %w", err)
	}

	fmt.Printf("✓ Person removed: %s\n", name)
	return nil
}

// SetRepresentativeCommand sets or clears a company's representative
func SetRepresentativeCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("person representative", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	companyRef := fs.String("company", "", "Company ID or name (required)")
	personRef := fs.String("person", "", "Person ID or name")
	clearRep := fs.Bool("clear", false, "Clear the representative")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	company, err := findCompany(project, *companyRef)
	if err != nil {
		return err
	}

	if *clearRep {
		company.SetRepresentative(nil)
		if err := repo.Save(ctx, project); err != nil {
			return fmt.Errorf("failed to clear representative: %w", err)
		}
		fmt.Printf("✓ Representative cleared for %s\n", company.Name)
		return nil
	}

	person, err := findPerson(company, *personRef)
	if err != nil {
		return err
	}
	id := person.ID
	company.SetRepresentative(&id)

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to set representative: %w", err)
	}

	fmt.Printf("✓ Representative of %s: %s\n", company.Name, person.Name)
	return nil
}

// AddMissionCommand adds a mission to a project's catalog
func AddMissionCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("mission add", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	name := fs.String("name", "", "Mission name (required)")
	sigle := fs.String("sigle", "", "Short code such as ESQ, APS, DET")
	description := fs.String("description", "", "Mission content")
	category := fs.String("category", string(models.CategoryBase), "base, pse, tranchesConditionnelles or variantes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--name is required")
	}
	cat, err := models.ParseCategory(*category)
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}

	added := project.AddMission(models.Mission{
		Name:        *name,
		Sigle:       *sigle,
		Description: *description,
		Category:    cat,
	})

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to add mission: %w", err)
	}

	fmt.Printf("✓ Mission added: %s (ID: %s)\n", added.DisplayName(), added.ID)
	fmt.Printf("  Category: %s\n", cat.Label())
	return nil
}
