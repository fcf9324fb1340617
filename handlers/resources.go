// ABOUTME: MCP resource handlers for exposing project data
// ABOUTME: Provides read-only access to projects and their budget report via memoire:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "memoire://"

type ResourceHandlers struct {
	repo *db.ProjectRepository
}

func NewResourceHandlers(repo *db.ProjectRepository) *ResourceHandlers {
	return &ResourceHandlers{repo: repo}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	if parts[0] != "projects" {
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}

	switch len(parts) {
	case 1:
		return h.readAllProjects(ctx, uri)
	case 2:
		return h.readProject(ctx, uri, parts[1])
	case 3:
		if parts[2] == "budget" {
			return h.readBudget(ctx, uri, parts[1])
		}
	}
	return nil, fmt.Errorf("unknown resource: %s", uri)
}

func (h *ResourceHandlers) readAllProjects(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	projects, err := h.repo.List(ctx, "", 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal projects: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func (h *ResourceHandlers) readProject(ctx context.Context, uri, idStr string) (*mcp.ReadResourceResult, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID: %w", err)
	}

	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}

	data, err := json.MarshalIndent(projectToDetail(project), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func (h *ResourceHandlers) readBudget(ctx context.Context, uri, idStr string) (*mcp.ReadResourceResult, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID: %w", err)
	}

	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}

	summary, err := budget.Summarize(project)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     report.Markdown(project, summary),
		},
	}}, nil
}
