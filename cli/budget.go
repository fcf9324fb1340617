// ABOUTME: Budget CLI commands
// ABOUTME: Allocations, imposed prices, category percentages and the budget summary
package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
)

// SetAllocationCommand writes a manual day allocation
func SetAllocationCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("budget allocate", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	missionRef := fs.String("mission", "", "Mission ID, sigle or name (required)")
	companyRef := fs.String("company", "", "Company ID or name (required)")
	personRef := fs.String("person", "", "Person ID or name (required)")
	days := fs.Float64("days", 0, "Days allocated")
	justification := fs.String("justification", "", "Why this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *days < 0 {
		return fmt.Errorf("--days must not be negative")
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	mission, err := findMission(project, *missionRef)
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

	if project.Estimation == nil {
		project.Estimation = models.ProjectEstimation{}
	}
	project.Estimation.SetAllocation(mission.Category, mission.ID, company.ID, person.ID, models.PersonAllocation{
		DaysAllocated: *days,
		Justification: strings.TrimSpace(*justification),
	})

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to set allocation: %w", err)
	}

	fmt.Printf("✓ %s: %s j on %s (%s)\n", person.Name, report.Days(*days), mission.DisplayName(), company.Name)
	fmt.Printf("  Cost: %s\n", report.Euro(*days*person.Rate()))
	return nil
}

// SetConstraintCommand imposes the total price of a company on a mission
func SetConstraintCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("budget constrain", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	missionRef := fs.String("mission", "", "Mission ID, sigle or name (required)")
	companyRef := fs.String("company", "", "Company ID or name (required)")
	amount := fs.Float64("amount", 0, "Imposed amount, excluding tax")
	justification := fs.String("justification", "", "Reason for the imposed price")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *amount < 0 {
		return fmt.Errorf("--amount must not be negative")
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	mission, err := findMission(project, *missionRef)
	if err != nil {
		return err
	}
	company, err := findCompany(project, *companyRef)
	if err != nil {
		return err
	}

	project.PriceConstraints = budget.UpsertConstraint(project.PriceConstraints, models.MissionPriceConstraint{
		MissionID:     mission.ID,
		CompanyID:     company.ID,
		ImposedAmount: *amount,
		Justification: *justification,
	})

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to set price constraint: %w", err)
	}

	fmt.Printf("✓ Imposed price: %s / %s = %s\n", mission.DisplayName(), company.Name, report.Euro(*amount))
	return nil
}

// RemoveConstraintCommand lifts an imposed price
func RemoveConstraintCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("budget unconstrain", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	missionRef := fs.String("mission", "", "Mission ID, sigle or name (required)")
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
	mission, err := findMission(project, *missionRef)
	if err != nil {
		return err
	}
	company, err := findCompany(project, *companyRef)
	if err != nil {
		return err
	}

	if budget.FindConstraint(project.PriceConstraints, mission.ID, company.ID) == nil {
		return fmt.Errorf("no imposed price for %s on %s", company.Name, mission.DisplayName())
	}
	project.PriceConstraints = budget.RemoveConstraint(project.PriceConstraints, mission.ID, company.ID)

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to remove price constraint: %w", err)
	}

	fmt.Printf("✓ Imposed price removed: %s / %s\n", mission.DisplayName(), company.Name)
	return nil
}

// SetPercentagesCommand sets the fee percentage of the categories given
func SetPercentagesCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("budget percentages", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	values := map[models.Category]*float64{
		models.CategoryBase:                    fs.Float64("base", 0, "Tranche ferme percentage of the works amount"),
		models.CategoryPSE:                     fs.Float64("pse", 0, "PSE percentage"),
		models.CategoryTranchesConditionnelles: fs.Float64("tranches-conditionnelles", 0, "Tranches conditionnelles percentage"),
		models.CategoryVariantes:               fs.Float64("variantes", 0, "Variantes percentage"),
	}
	flagNames := map[models.Category]string{
		models.CategoryBase:                    "base",
		models.CategoryPSE:                     "pse",
		models.CategoryTranchesConditionnelles: "tranches-conditionnelles",
		models.CategoryVariantes:               "variantes",
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	visited := visitedFlags(fs)
	changed := false
	for cat, v := range values {
		if !visited[flagNames[cat]] {
			continue
		}
		changed = true
		if *v < 0 || *v > 100 {
			return fmt.Errorf("--%s must be between 0 and 100", flagNames[cat])
		}
	}
	if !changed {
		return fmt.Errorf("at least one of --base, --pse, --tranches-conditionnelles, --variantes is required")
	}

	ctx := context.Background()
	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}

	if project.CategoryPercentages == nil {
		project.CategoryPercentages = models.CategoryPercentages{}
	}
	for cat, v := range values {
		if visited[flagNames[cat]] {
			project.CategoryPercentages[cat] = *v
		}
	}

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to set category percentages: %w", err)
	}

	fmt.Println("✓ Category percentages updated")
	for _, cat := range models.Categories() {
		if pct, ok := project.CategoryPercentages[cat]; ok {
			fmt.Printf("  %s: %s (%s)\n", cat.Label(), report.Percent(pct),
				report.Euro(budget.CategoryTargetAmount(project.WorksAmount, pct)))
		}
	}
	if msg, ok := budget.CategoryPercentagesWarning(project.CategoryPercentages); ok {
		fmt.Printf("⚠️  %s\n", msg)
	}
	return nil
}

// BudgetSummaryCommand prints the effective budget of a project
func BudgetSummaryCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("budget summary", flag.ExitOnError)
	format := fs.String("format", "table", "Output format: table, json, yaml or markdown")
	style := fs.String("style", "auto", "Markdown style: auto, dark, light or notty")
	width := fs.Int("width", 100, "Markdown word wrap width")
	raw := fs.Bool("raw", false, "Print markdown source instead of rendering it")
	output := fs.String("output", "", "Output file (default: stdout)")
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

	summary, err := budget.Summarize(project)
	if err != nil {
		var missing *budget.MissingProjectDataError
		if errors.As(err, &missing) {
			return fmt.Errorf("cannot summarize budget, %s is not set: %w", missing.Field, err)
		}
		return err
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return writeSummary(out, project, summary, summaryFormat{
		format: *format,
		style:  *style,
		width:  *width,
		raw:    *raw || *output != "",
	})
}

type summaryFormat struct {
	format string
	style  string
	width  int
	raw    bool
}

func writeSummary(w io.Writer, project *models.Project, summary *budget.Summary, f summaryFormat) error {
	switch f.format {
	case "table":
		return writeSummaryTable(w, summary)
	case "json":
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := toYAML(summary)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "markdown", "md":
		md := report.Markdown(project, summary)
		if !f.raw {
			rendered, err := report.Render(md, f.style, f.width)
			if err != nil {
				return err
			}
			md = rendered
		}
		_, err := fmt.Fprint(w, md)
		return err
	}
	return fmt.Errorf("unknown format: %s (valid: table, json, yaml, markdown)", f.format)
}

func writeSummaryTable(out io.Writer, summary *budget.Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	for _, cs := range summary.Categories {
		if len(cs.Missions) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%s, cible %s)\n", strings.ToUpper(cs.Category.Label()), report.Percent(cs.Percentage), report.Euro(cs.TargetAmount))
		fmt.Fprintln(w, "MISSION\tCOMPANY\tDAYS\tAMOUNT\t")
		for _, ml := range cs.Missions {
			for _, cl := range ml.Companies {
				if cl.Days == 0 && !cl.Constrained {
					continue
				}
				marker := ""
				if cl.Constrained {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ml.Name, cl.CompanyName, report.Days(cl.Days), report.Euro(cl.Amount), marker)
			}
		}
		fmt.Fprintf(w, "TOTAL\t\t\t%s\t\n\n", report.Euro(cs.Total))
	}

	fmt.Fprintf(w, "PROJECT TOTAL\t\t\t%s\t\n", report.Euro(summary.Total))
	fmt.Fprintf(w, "TARGET\t\t\t%s\t\n", report.Euro(summary.TargetTotal))
	if err := w.Flush(); err != nil {
		return err
	}

	for _, warning := range summary.Warnings {
		fmt.Fprintf(out, "⚠️  %s\n", warning)
	}
	return nil
}

// toYAML renders v as YAML with the same field names as its JSON form.
func toYAML(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary as yaml: %w", err)
	}
	return out, nil
}
