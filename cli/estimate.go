// ABOUTME: Estimation CLI commands
// ABOUTME: Ask the model for a budget split, day allocations, CV summaries and mission text
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/estimator"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
)

// estimateContext is cancelled on Ctrl-C so a pending model call stops.
func estimateContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// EstimatePercentagesCommand suggests category and mission percentages
func EstimatePercentagesCommand(database *sql.DB, est *estimator.Estimator, args []string) error {
	fs := flag.NewFlagSet("estimate percentages", flag.ExitOnError)
	apply := fs.Bool("apply", false, "Store the suggested percentages on the project")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}

	ctx, cancel := estimateContext()
	defer cancel()

	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	result, err := est.EstimatePercentages(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to estimate percentages: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tMISSION\tPERCENTAGE\tJUSTIFICATION")
	fmt.Fprintln(w, "--------\t-------\t----------\t-------------")
	for _, cat := range models.Categories() {
		pct, ok := result.Categories[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t\t%s\t\n", cat.Label(), report.Percent(pct))
		for _, m := range project.MissionsIn(cat) {
			mp, ok := result.Missions[cat][m.ID]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "\t%s\t%s\t%s\n", m.DisplayName(), report.Percent(mp), truncate(result.Justifications[m.ID], 60))
		}
	}
	_ = w.Flush()

	for _, warning := range budget.CheckMissionPercentages(result.Missions) {
		fmt.Printf("⚠️  %s\n", warning)
	}

	if !*apply {
		return nil
	}

	project.CategoryPercentages = result.Categories
	project.MissionPercentages = result.Missions
	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to store percentages: %w", err)
	}
	fmt.Println("✓ Percentages applied")
	return nil
}

// EstimateDaysCommand suggests day allocations and stores them as the AI ledger
func EstimateDaysCommand(database *sql.DB, est *estimator.Estimator, args []string) error {
	fs := flag.NewFlagSet("estimate days", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}

	ctx, cancel := estimateContext()
	defer cancel()

	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	estimation, err := est.EstimateDays(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to estimate days: %w", err)
	}

	project.AIEstimation = estimation
	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to store estimation: %w", err)
	}

	summary, err := budget.Summarize(project)
	if err != nil {
		return err
	}

	fmt.Println("✓ Day estimation stored (manual allocations still take precedence)")
	return writeSummaryTable(os.Stdout, summary)
}

// SummarizeCVsCommand writes a short summary of every CV in the project
func SummarizeCVsCommand(database *sql.DB, est *estimator.Estimator, concurrency int, args []string) error {
	fs := flag.NewFlagSet("estimate cvs", flag.ExitOnError)
	limit := fs.Int("concurrency", concurrency, "Parallel model calls")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("project ID or name required")
	}

	ctx, cancel := estimateContext()
	defer cancel()

	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, fs.Arg(0))
	if err != nil {
		return err
	}

	summaries, err := est.SummarizeCVs(ctx, project, *limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No CVs to summarize")
		return nil
	}

	var names []string
	for i := range project.Companies {
		for j := range project.Companies[i].People {
			person := &project.Companies[i].People[j]
			if summary, ok := summaries[person.ID]; ok {
				person.CVSummary = summary
				names = append(names, person.Name)
			}
		}
	}

	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to store CV summaries: %w", err)
	}

	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("✓ CV summarized: %s\n", name)
	}
	return nil
}

// EnrichMissionCommand drafts a fuller mission description
func EnrichMissionCommand(database *sql.DB, est *estimator.Estimator, args []string) error {
	fs := flag.NewFlagSet("estimate mission", flag.ExitOnError)
	projectRef := fs.String("project", "", "Project ID or name (required)")
	missionRef := fs.String("mission", "", "Mission ID, sigle or name (required)")
	apply := fs.Bool("apply", false, "Replace the mission description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := estimateContext()
	defer cancel()

	repo := db.NewProjectRepository(database)
	project, err := resolveProject(ctx, repo, *projectRef)
	if err != nil {
		return err
	}
	mission, err := findMission(project, *missionRef)
	if err != nil {
		return err
	}

	text, err := est.EnrichMission(ctx, project, mission)
	if err != nil {
		return err
	}
	fmt.Println(text)

	if !*apply {
		return nil
	}
	mission.Description = text
	if err := repo.Save(ctx, project); err != nil {
		return fmt.Errorf("failed to store description: %w", err)
	}
	fmt.Printf("\n✓ Description of %s updated\n", mission.DisplayName())
	return nil
}
