// ABOUTME: Archive CLI commands
// ABOUTME: Export a project to a single-entry ZIP file and import it back
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/memoire/archive"
	"github.com/harperreed/memoire/db"
)

// ExportCommand writes a project archive to disk
func ExportCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("archive export", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: <reference>.memoire.zip)")
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

	data, err := archive.ExportProject(project)
	if err != nil {
		return fmt.Errorf("failed to export project: %w", err)
	}

	path := *output
	if path == "" {
		path = archive.ExportFilename(project)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	fmt.Printf("✓ Project exported: %s (%d bytes)\n", path, len(data))
	return nil
}

// ImportCommand restores a project from an archive under its original ID
func ImportCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("archive import", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("archive file required")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	project, err := archive.ImportProject(data)
	if err != nil {
		return fmt.Errorf("failed to import project: %w", err)
	}

	if err := db.NewProjectRepository(database).Save(context.Background(), project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	fmt.Printf("✓ Project imported: %s (ID: %s)\n", project.Name, project.ID)
	fmt.Printf("  %d missions, %d companies\n", len(project.Missions), len(project.Companies))
	return nil
}
