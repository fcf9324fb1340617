// ABOUTME: Entry point for the memoire CLI and MCP server
// ABOUTME: Routes to MCP server or CLI commands based on arguments
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/harperreed/memoire/cli"
	"github.com/harperreed/memoire/config"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/estimator"
)

const version = "0.1.0"

type dbCommand func(database *sql.DB, args []string) error

// commands maps "group subcommand" to the CLI commands that only need the database.
var commands = map[string]map[string]dbCommand{
	"project": {
		"create":   cli.CreateProjectCommand,
		"list":     cli.ListProjectsCommand,
		"show":     cli.ShowProjectCommand,
		"update":   cli.UpdateProjectCommand,
		"delete":   cli.DeleteProjectCommand,
		"runs":     cli.ProjectRunsCommand,
		"criteria": cli.SetNotationCriteriaCommand,
	},
	"company": {
		"add":        cli.AddCompanyCommand,
		"remove":     cli.RemoveCompanyCommand,
		"mandataire": cli.SetMandataireCommand,
	},
	"person": {
		"add":            cli.AddPersonCommand,
		"remove":         cli.RemovePersonCommand,
		"representative": cli.SetRepresentativeCommand,
	},
	"mission": {
		"add": cli.AddMissionCommand,
	},
	"budget": {
		"allocate":    cli.SetAllocationCommand,
		"constrain":   cli.SetConstraintCommand,
		"unconstrain": cli.RemoveConstraintCommand,
		"percentages": cli.SetPercentagesCommand,
		"summary":     cli.BudgetSummaryCommand,
	},
	"archive": {
		"export": cli.ExportCommand,
		"import": cli.ImportCommand,
	},
	"viz": {
		"graph":     cli.VizGraphCommand,
		"dashboard": cli.VizDashboardCommand,
	},
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/memoire/memoire.db)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("memoire version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	args := flag.Args()
	if len(args) == 0 && !*initOnly {
		printUsage()
		os.Exit(0)
	}

	if len(args) > 0 && args[0] == "config" {
		runConfig(cfg, args[1:])
		return
	}

	database, err := db.OpenDatabase(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if *initOnly {
		log.Printf("Database initialized successfully: %s", cfg.DBPath)
		return
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "mcp":
		// MCP server logs to stderr only; stdout carries the protocol
		if err := cli.MCPCommand(database, newEstimator(cfg, database), cfg.Concurrency, version); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	case "web":
		if err := cli.WebCommand(database, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "tui":
		if err := cli.TUICommand(database, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "estimate":
		est := newEstimator(cfg, database)
		if est == nil {
			log.Fatalf("Error: estimate requires an API key (set ANTHROPIC_API_KEY or run 'memoire config setup')")
		}
		runEstimate(database, est, cfg.Concurrency, commandArgs)

	default:
		group, ok := commands[command]
		if !ok {
			fmt.Printf("Unknown command: %s\n\n", command)
			printUsage()
			os.Exit(1)
		}
		if len(commandArgs) == 0 {
			fmt.Printf("Error: %s requires a subcommand (%s)\n", command, subcommandList(group))
			os.Exit(1)
		}
		run, ok := group[commandArgs[0]]
		if !ok {
			fmt.Printf("Unknown %s command: %s\n\n", command, commandArgs[0])
			printUsage()
			os.Exit(1)
		}
		if err := run(database, commandArgs[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	}
}

// newEstimator returns nil when no API key is configured.
func newEstimator(cfg *config.Config, database *sql.DB) *estimator.Estimator {
	if !cfg.HasAPIKey() {
		return nil
	}
	client := estimator.NewClient(cfg.APIKey,
		estimator.WithModel(cfg.Model),
		estimator.WithBaseURL(cfg.BaseURL),
	)
	return estimator.New(client, estimator.WithRunRecorder(db.NewEstimationRunRepository(database)))
}

func runEstimate(database *sql.DB, est *estimator.Estimator, concurrency int, args []string) {
	if len(args) == 0 {
		fmt.Println("Error: estimate requires a subcommand (cvs, days, mission, percentages)")
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "percentages":
		err = cli.EstimatePercentagesCommand(database, est, args[1:])
	case "days":
		err = cli.EstimateDaysCommand(database, est, args[1:])
	case "cvs":
		err = cli.SummarizeCVsCommand(database, est, concurrency, args[1:])
	case "mission":
		err = cli.EnrichMissionCommand(database, est, args[1:])
	default:
		fmt.Printf("Unknown estimate command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runConfig(cfg *config.Config, args []string) {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	var err error
	switch sub {
	case "setup":
		err = cli.ConfigSetupCommand(cfg)
	case "show":
		err = cli.ConfigShowCommand(cfg)
	default:
		fmt.Printf("Unknown config command: %s\n\n", sub)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func subcommandList(group map[string]dbCommand) string {
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}

func printUsage() {
	fmt.Printf(`memoire v%s - Mémoire technique toolkit

USAGE:
  memoire [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/memoire/memoire.db)
  --init                 Initialize database and exit

COMMANDS:
  mcp                    Start MCP server
  project                Manage projects
  company                Manage consortium companies
  person                 Manage mobilized people
  mission                Manage the mission catalog
  budget                 Allocations, imposed prices and budget summary
  archive                Export and import project archives
  estimate               LLM-assisted estimation (requires an API key)
  tui                    Interactive budget viewer
  viz                    Consortium graph and dashboard
  web                    Read-only web UI
  config                 Show or set up configuration

PROJECT COMMANDS:
  memoire project create       Create a project
    --name <name>                Project name (required)
    --reference <ref>            Tender reference
    --buyer <name>               Maître d'ouvrage
    --works-amount <amount>      Works amount, excluding tax

  memoire project list         List projects
    --query <text>               Search by name or reference
    --limit <n>                  Max results (default: 50)

  memoire project show <project>          Show missions and consortium
  memoire project update [flags] <project>  Update name, reference, buyer or works amount
  memoire project delete <project>        Delete a project
  memoire project runs <project>          List estimation runs
  memoire project criteria [--clear] <project> ["Name=weight" ...]
                                          Set the buyer's notation criteria

CONSORTIUM COMMANDS:
  memoire company add --project <p> --name <name> [--mandataire]
  memoire company remove --project <p> --company <c>
  memoire company mandataire --project <p> --company <c>
  memoire person add --project <p> --company <c> --name <name> [--role r] [--rate n] [--cv-file f] [--representative]
  memoire person remove --project <p> --company <c> --person <name>
  memoire person representative --project <p> --company <c> (--person <name> | --clear)
  memoire mission add --project <p> --name <name> [--sigle ESQ] [--category base]

BUDGET COMMANDS:
  memoire budget allocate --project <p> --mission <m> --company <c> --person <name> --days <n>
  memoire budget constrain --project <p> --mission <m> --company <c> --amount <n>
  memoire budget unconstrain --project <p> --mission <m> --company <c>
  memoire budget percentages --project <p> [--base n] [--pse n] [--tranches-conditionnelles n] [--variantes n]
  memoire budget summary [flags] <project>
    --format <fmt>               table, json, yaml or markdown (default: table)
    --style <style>              Markdown style (default: auto)
    --output <file>              Output file (default: stdout)

ARCHIVE COMMANDS:
  memoire archive export [--output file] <project>
  memoire archive import <file>

ESTIMATE COMMANDS:
  memoire estimate percentages [--apply] <project>
  memoire estimate days <project>
  memoire estimate cvs [--concurrency n] <project>
  memoire estimate mission --project <p> --mission <m> [--apply]

VIZ COMMANDS:
  memoire viz graph [--output file] <project>
  memoire viz dashboard <project>
  memoire tui <project>
  memoire web [--port 8080]

CONFIG COMMANDS:
  memoire config show
  memoire config setup

Projects, companies, people and missions can be referenced by ID or by name;
missions also by sigle.

EXAMPLES:
  memoire project create --name "Groupe scolaire" --reference GS-2025 --works-amount 1200000
  memoire company add --project GS-2025 --name "Atelier Loire" --mandataire
  memoire budget summary --format markdown "Groupe scolaire"

`, version)
}
