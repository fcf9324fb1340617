// ABOUTME: Archive MCP tool handlers
// ABOUTME: Implements export_project and import_project with base64-encoded archives
package handlers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/harperreed/memoire/archive"
	"github.com/harperreed/memoire/db"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ArchiveHandlers struct {
	repo *db.ProjectRepository
}

func NewArchiveHandlers(repo *db.ProjectRepository) *ArchiveHandlers {
	return &ArchiveHandlers{repo: repo}
}

type ExportProjectOutput struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Archive  string `json:"archive" jsonschema:"Base64-encoded ZIP archive"`
}

func (h *ArchiveHandlers) ExportProject(ctx context.Context, request *mcp.CallToolRequest, input ProjectIDInput) (*mcp.CallToolResult, ExportProjectOutput, error) {
	id, err := parseID("project_id", input.ProjectID)
	if err != nil {
		return nil, ExportProjectOutput{}, err
	}

	project, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, ExportProjectOutput{}, fmt.Errorf("failed to load project: %w", err)
	}

	data, err := archive.ExportProject(project)
	if err != nil {
		return nil, ExportProjectOutput{}, fmt.Errorf("failed to export project: %w", err)
	}

	return nil, ExportProjectOutput{
		Filename: archive.ExportFilename(project),
		Size:     len(data),
		Archive:  base64.StdEncoding.EncodeToString(data),
	}, nil
}

type ImportProjectInput struct {
	Archive string `json:"archive" jsonschema:"Base64-encoded ZIP archive produced by export_project (required)"`
}

// ImportProject restores a project under its original ID, replacing any
// project stored with the same ID.
func (h *ArchiveHandlers) ImportProject(ctx context.Context, request *mcp.CallToolRequest, input ImportProjectInput) (*mcp.CallToolResult, ProjectOutput, error) {
	if input.Archive == "" {
		return nil, ProjectOutput{}, fmt.Errorf("archive is required")
	}
	data, err := base64.StdEncoding.DecodeString(input.Archive)
	if err != nil {
		return nil, ProjectOutput{}, fmt.Errorf("invalid base64 archive: %w", err)
	}

	project, err := archive.ImportProject(data)
	if err != nil {
		return nil, ProjectOutput{}, fmt.Errorf("failed to import project: %w", err)
	}
	if err := h.repo.Save(ctx, project); err != nil {
		return nil, ProjectOutput{}, fmt.Errorf("failed to save project: %w", err)
	}

	return nil, projectToOutput(project), nil
}
