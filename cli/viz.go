// ABOUTME: Visualization CLI commands
// ABOUTME: Consortium graph, text dashboard and the interactive budget viewer
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/tui"
	"github.com/harperreed/memoire/viz"
)

// VizGraphCommand generates the consortium graph of a project.
func VizGraphCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("viz graph", flag.ExitOnError)
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

	dot, err := viz.GenerateConsortiumGraph(project)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	fmt.Println(dot)
	return nil
}

// VizDashboardCommand prints the fee dashboard of a project.
func VizDashboardCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("viz dashboard", flag.ExitOnError)
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
		return err
	}

	fmt.Print(viz.RenderDashboard(viz.GenerateDashboardStats(project, summary)))
	return nil
}

// TUICommand opens the interactive budget viewer.
func TUICommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
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

	return tui.Run(project)
}
