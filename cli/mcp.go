// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server exposing project, consortium, budget and estimation tools
package cli

import (
	"context"
	"database/sql"
	"log"

	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/estimator"
	"github.com/harperreed/memoire/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPCommand starts the MCP server on stdio. Estimation tools are only
// registered when est is non-nil.
func MCPCommand(database *sql.DB, est *estimator.Estimator, concurrency int, version string) error {
	log.Println("Starting memoire MCP server...")

	return NewMCPServer(database, est, concurrency, version).Run(context.Background(), &mcp.StdioTransport{})
}

// NewMCPServer builds the server with every tool, resource and prompt registered.
func NewMCPServer(database *sql.DB, est *estimator.Estimator, concurrency int, version string) *mcp.Server {
	repo := db.NewProjectRepository(database)

	projectHandlers := handlers.NewProjectHandlers(repo)
	consortiumHandlers := handlers.NewConsortiumHandlers(repo)
	budgetHandlers := handlers.NewBudgetHandlers(repo)
	archiveHandlers := handlers.NewArchiveHandlers(repo)
	resourceHandlers := handlers.NewResourceHandlers(repo)
	promptHandlers := handlers.NewPromptHandlers(repo)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "memoire",
		Version: version,
	}, nil)

	// Projects
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_project",
		Description: "Create a new mémoire technique project",
	}, projectHandlers.CreateProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List projects, optionally filtered by name or reference",
	}, projectHandlers.ListProjects)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_project",
		Description: "Get a project with its missions, consortium, imposed prices and allocations",
	}, projectHandlers.GetProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_project",
		Description: "Update a project's name, reference, buyer or works amount",
	}, projectHandlers.UpdateProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project and its estimation history",
	}, projectHandlers.DeleteProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_notation_criteria",
		Description: "Replace the buyer's notation criteria (name and weight in percent) of a project",
	}, projectHandlers.SetNotationCriteria)

	// Consortium
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_company",
		Description: "Add a participating company to the consortium",
	}, consortiumHandlers.AddCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_company",
		Description: "Remove a company and its imposed prices from the consortium",
	}, consortiumHandlers.RemoveCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_mandataire",
		Description: "Designate the mandataire (lead company) of the consortium",
	}, consortiumHandlers.SetMandataire)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_person",
		Description: "Add a mobilized person to a company with role, daily rate and CV",
	}, consortiumHandlers.AddPerson)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_person",
		Description: "Remove a person from a company",
	}, consortiumHandlers.RemovePerson)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_representative",
		Description: "Set or clear the representative of a company",
	}, consortiumHandlers.SetRepresentative)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_mission",
		Description: "Add a mission to the project catalog in one of the four categories",
	}, consortiumHandlers.AddMission)

	// Budget
	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_allocation",
		Description: "Set the days a person spends on a mission; manual allocations override suggested ones",
	}, budgetHandlers.SetAllocation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_price_constraint",
		Description: "Impose the total price of a company on a mission, replacing its computed subtotal",
	}, budgetHandlers.SetPriceConstraint)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_price_constraint",
		Description: "Remove an imposed price so the subtotal is computed from days again",
	}, budgetHandlers.RemovePriceConstraint)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_category_percentages",
		Description: "Set the fee percentage of the works amount for one or more categories",
	}, budgetHandlers.SetCategoryPercentages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "budget_summary",
		Description: "Compute the fee budget per category, mission and company, with targets and warnings",
	}, budgetHandlers.BudgetSummary)

	// Archives
	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_project",
		Description: "Export a project as a base64-encoded single-entry ZIP archive",
	}, archiveHandlers.ExportProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_project",
		Description: "Import a project from a base64-encoded archive produced by export_project",
	}, archiveHandlers.ImportProject)

	if est != nil {
		estimateHandlers := handlers.NewEstimateHandlers(repo, est, concurrency)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "estimate_percentages",
			Description: "Ask the model for category and mission fee percentages",
		}, estimateHandlers.EstimatePercentages)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "estimate_days",
			Description: "Ask the model for day allocations per mission, company and person",
		}, estimateHandlers.EstimateDays)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "summarize_cvs",
			Description: "Write a short summary of every CV in the project",
		}, estimateHandlers.SummarizeCVs)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "enrich_mission",
			Description: "Draft a fuller description of a mission",
		}, estimateHandlers.EnrichMission)
	}

	// Resources
	server.AddResource(&mcp.Resource{
		URI:         "memoire://projects",
		Name:        "projects",
		Description: "All projects",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "memoire://projects/{id}",
		Name:        "project",
		Description: "One project with its consortium and allocations",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "memoire://projects/{id}/budget",
		Name:        "project-budget",
		Description: "Fee breakdown of a project as markdown",
		MIMEType:    "text/markdown",
	}, resourceHandlers.ReadResource)

	// Prompts
	projectArg := []*mcp.PromptArgument{{
		Name:        "project_id",
		Description: "Project ID",
		Required:    true,
	}}

	server.AddPrompt(&mcp.Prompt{
		Name:        "fee-justification",
		Description: "Draft the fee justification section from the budget",
		Arguments:   projectArg,
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "team-presentation",
		Description: "Draft the team presentation section from the consortium",
		Arguments:   projectArg,
	}, promptHandlers.GetPrompt)

	return server
}
