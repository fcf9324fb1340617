// ABOUTME: Project CLI commands
// ABOUTME: Create, list, show, update and delete mémoire projects
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
)

// CreateProjectCommand creates a new project
func CreateProjectCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("project create", flag.ExitOnError)
	name := fs.String("name", "", "Project name (required)")
	reference := fs.String("reference", "", "Tender reference")
	buyer := fs.String("buyer", "", "Maître d'ouvrage")
	worksAmount := fs.Float64("works-amount", 0, "Works amount, excluding tax")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--name is required")
	}
	if *worksAmount < 0 {
		return fmt.Errorf("--works-amount must not be negative")
	}

	project := &models.Project{
		Name:        *name,
		Reference:   *reference,
		Buyer:       *buyer,
		WorksAmount: *worksAmount,
	}

	repo := db.NewProjectRepository(database)
	if err := repo.Create(context.Background(), project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	fmt.Printf("✓ Project created: %s (ID: %s)\n", project.Name, project.ID)
	if project.Reference != "" {
		fmt.Printf("  Reference: %s\n", project.Reference)
	}
	if project.WorksAmount > 0 {
		fmt.Printf("  Works amount: %s\n", report.Euro(project.WorksAmount))
	}

	return nil
}

// ListProjectsCommand lists projects
func ListProjectsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("project list", flag.ExitOnError)
	query := fs.String("query", "", "Search by name or reference")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	projects, err := db.NewProjectRepository(database).List(context.Background(), *query, *limit)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREFERENCE\tBUYER\tWORKS\tID")
	fmt.Fprintln(w, "----\t---------\t-----\t-----\t--")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Name, orDash(p.Reference), orDash(p.Buyer), report.Euro(p.WorksAmount), p.ID)
	}
	_ = w.Flush()

	fmt.Printf("\n%d project(s)\n", len(projects))
	return nil
}

// ShowProjectCommand prints a project with its missions and consortium
func ShowProjectCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("project show", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}

	project, err := resolveProject(context.Background(), db.NewProjectRepository(database), fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("%s (ID: %s)\n", project.Name, project.ID)
	if project.Reference != "" {
		fmt.Printf("  Reference: %s\n", project.Reference)
	}
	if project.Buyer != "" {
		fmt.Printf("  Buyer: %s\n", project.Buyer)
	}
	fmt.Printf("  Works amount: %s\n", report.Euro(project.WorksAmount))

	fmt.Println("\nMISSIONS")
	if len(project.Missions) == 0 {
		fmt.Println("  (none)")
	}
	for _, cat := range models.Categories() {
		missions := project.MissionsIn(cat)
		if len(missions) == 0 {
			continue
		}
		header := cat.Label()
		if pct, ok := project.CategoryPercentages[cat]; ok {
			header += " (" + report.Percent(pct) + ")"
		}
		fmt.Printf("  %s\n", header)
		for _, m := range missions {
			fmt.Printf("    - %s [%s]\n", m.DisplayName(), m.ID)
		}
	}

	fmt.Println("\nCONSORTIUM")
	if len(project.Companies) == 0 {
		fmt.Println("  (none)")
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, c := range project.Companies {
		role := "cotraitant"
		if project.MandataireID != nil && *project.MandataireID == c.ID {
			role = "mandataire"
		}
		fmt.Fprintf(w, "  %s\t%s\t\t%s\n", c.Name, role, c.ID)
		for _, p := range c.People {
			name := p.Name
			if c.RepresentativeID != nil && *c.RepresentativeID == p.ID {
				name += " (représentant)"
			}
			rate := "-"
			if p.DailyRate != nil {
				rate = report.Euro(*p.DailyRate) + "/j"
			}
			fmt.Fprintf(w, "    %s\t%s\t%s\t%s\n", name, orDash(p.Role), rate, p.ID)
		}
	}
	_ = w.Flush()

	if len(project.PriceConstraints) > 0 {
		fmt.Println("\nIMPOSED PRICES")
		for _, pc := range project.PriceConstraints {
			mission := project.Mission(pc.MissionID)
			company := project.Company(pc.CompanyID)
			if mission == nil || company == nil {
				continue
			}
			fmt.Printf("  %s / %s: %s\n", mission.DisplayName(), company.Name, report.Euro(pc.ImposedAmount))
		}
	}

	if len(project.NotationCriteria) > 0 {
		fmt.Println("\nNOTATION CRITERIA")
		for _, c := range project.NotationCriteria {
			fmt.Printf("  %s: %s\n", c.Name, report.Percent(c.Weight))
		}
		if msg, ok := budget.NotationWeightsWarning(project.NotationCriteria); ok {
			fmt.Printf("⚠️  %s\n", msg)
		}
	}

	return nil
}

// SetNotationCriteriaCommand replaces the buyer's scoring grid
func SetNotationCriteriaCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("project criteria", flag.ExitOnError)
	clearAll := fs.Bool("clear", false, "Remove every criterion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}
	if !*clearAll && fs.NArg() < 2 {
		return fmt.Errorf("at least one \"Name=weight\" criterion or --clear is required")
	}

	var criteria []models.NotationCriterion
	if !*clearAll {
		for _, arg := range fs.Args()[1:] {
			c, err := parseNotationCriterion(arg)
			if err != nil {
				return err
			}
			criteria = append(criteria, c)
		}
		if err := models.ValidateNotationCriteria(criteria); err != nil {
			return err
		}
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	project.NotationCriteria = criteria
	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to set notation criteria: %w", err)
	}

	if len(criteria) == 0 {
		fmt.Println("✓ Notation criteria cleared")
		return nil
	}
	fmt.Printf("✓ %d notation criteria set (total %s)\n", len(criteria), report.Percent(project.NotationWeight()))
	if msg, ok := budget.NotationWeightsWarning(criteria); ok {
		fmt.Printf("⚠️  %s\n", msg)
	}
	return nil
}

// parseNotationCriterion reads "Name=weight". The last '=' separates the
// weight so names may contain one.
func parseNotationCriterion(arg string) (models.NotationCriterion, error) {
	i := strings.LastIndex(arg, "=")
	if i < 0 {
		return models.NotationCriterion{}, fmt.Errorf("invalid criterion %q (expected Name=weight)", arg)
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(arg[i+1:], "%")), 64)
	if err != nil {
		return models.NotationCriterion{}, fmt.Errorf("invalid weight in %q: %w", arg, err)
	}
	return models.NotationCriterion{Name: strings.TrimSpace(arg[:i]), Weight: weight}, nil
}

// UpdateProjectCommand updates the flags given; others are left unchanged
func UpdateProjectCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("project update", flag.ExitOnError)
	name := fs.String("name", "", "Project name")
	reference := fs.String("reference", "", "Tender reference")
	buyer := fs.String("buyer", "", "Maître d'ouvrage")
	worksAmount := fs.Float64("works-amount", 0, "Works amount, excluding tax")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	visited := visitedFlags(fs)
	if visited["name"] {
		if strings.TrimSpace(*name) == "" {
			return fmt.Errorf("--name must not be empty")
		}
		project.Name = *name
	}
	if visited["reference"] {
		project.Reference = *reference
	}
	if visited["buyer"] {
		project.Buyer = *buyer
	}
	if visited["works-amount"] {
		if *worksAmount < 0 {
			return fmt.Errorf("--works-amount must not be negative")
		}
		project.WorksAmount = *worksAmount
	}

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	fmt.Printf("✓ Project updated: %s\n", project.Name)
	return nil
}

// DeleteProjectCommand deletes a project and its estimation runs
func DeleteProjectCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("project delete", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	fmt.Printf("✓ Project deleted: %s\n", project.Name)
	return nil
}

// ProjectRunsCommand lists the estimation runs recorded for a project
func ProjectRunsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("project runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}

	ctx := context.Background()
	project, err := resolveProject(ctx, db.NewProjectRepository(database), fs.Arg(0))
	if err != nil {
		return err
	}

	runs, err := db.NewEstimationRunRepository(database).ListRuns(ctx, project.ID, *limit)
	if err != nil {
		return fmt.Errorf("failed to list estimation runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No estimation runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tKIND\tMODEL\tSTATUS\tTOKENS (IN/OUT)")
	fmt.Fprintln(w, "----\t----\t-----\t------\t---------------")
	for _, run := range runs {
		status := run.Status
		if run.ErrorMessage != "" {
			status += ": " + truncate(run.ErrorMessage, 40)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			run.CreatedAt.Format("2006-01-02 15:04"), run.Kind, orDash(run.Model), status, run.InputTokens, run.OutputTokens)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
