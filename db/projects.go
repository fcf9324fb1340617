// ABOUTME: Project repository backed by the projects table
// ABOUTME: Stores the whole project aggregate as JSON next to indexed summary columns
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/memoire/models"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidProject  = errors.New("invalid project")
)

// ProjectSummary is the listing view of a project.
type ProjectSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Reference   string    `json:"reference,omitempty"`
	Buyer       string    `json:"buyer,omitempty"`
	WorksAmount float64   `json:"works_amount"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectRepository loads and saves project aggregates.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project, assigning an ID and timestamps.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project == nil || strings.TrimSpace(project.Name) == "" {
		return ErrInvalidProject
	}

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, reference, buyer, works_amount, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, project.ID.String(), project.Name, project.Reference, project.Buyer, project.WorksAmount, string(data), project.CreatedAt, project.UpdatedAt)

	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Load retrieves a project by ID.
func (r *ProjectRepository) Load(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return loadProject(ctx, r.db, id)
}

func loadProject(ctx context.Context, q querier, id uuid.UUID) (*models.Project, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM projects WHERE id = ?`, id.String()).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeProject(data)
}

// Save writes the aggregate back, inserting it when it does not exist yet.
// Imports rely on the upsert to restore a project under its original ID.
func (r *ProjectRepository) Save(ctx context.Context, project *models.Project) error {
	return saveProject(ctx, r.db, project)
}

func saveProject(ctx context.Context, q querier, project *models.Project) error {
	if project == nil || project.ID == uuid.Nil || strings.TrimSpace(project.Name) == "" {
		return ErrInvalidProject
	}

	project.UpdatedAt = time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = project.UpdatedAt
	}

	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO projects (id, name, reference, buyer, works_amount, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			reference = excluded.reference,
			buyer = excluded.buyer,
			works_amount = excluded.works_amount,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, project.ID.String(), project.Name, project.Reference, project.Buyer, project.WorksAmount, string(data), project.CreatedAt, project.UpdatedAt)

	return err
}

// Update loads a project, applies fn and saves the result in one
// transaction. The connection opens transactions with BEGIN IMMEDIATE, so
// concurrent updates of the same project are applied one after the other.
// fn must not use the repository.
func (r *ProjectRepository) Update(ctx context.Context, id uuid.UUID, fn func(*models.Project) error) (*models.Project, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	project, err := loadProject(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(project); err != nil {
		return nil, err
	}
	if err := saveProject(ctx, tx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project: %w", err)
	}
	return project, nil
}

// List returns project summaries, newest first, optionally filtered by name or reference.
func (r *ProjectRepository) List(ctx context.Context, query string, limit int) ([]ProjectSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	searchPattern := "%" + strings.ToLower(query) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, reference, buyer, works_amount, updated_at
		FROM projects
		WHERE LOWER(name) LIKE ? OR LOWER(COALESCE(reference, '')) LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, searchPattern, searchPattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var projects []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		var reference, buyer sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &reference, &buyer, &p.WorksAmount, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Reference = reference.String
		p.Buyer = buyer.String
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// FindByName returns the project with the given name (case-insensitive), or nil.
func (r *ProjectRepository) FindByName(ctx context.Context, name string) (*models.Project, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM projects WHERE LOWER(name) = LOWER(?)
		ORDER BY updated_at DESC LIMIT 1
	`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decodeProject(data)
}

// Delete removes a project and its estimation runs.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM estimation_runs WHERE project_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete estimation runs: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProjectNotFound
	}

	return tx.Commit()
}

func decodeProject(data string) (*models.Project, error) {
	var project models.Project
	if err := json.Unmarshal([]byte(data), &project); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	return &project, nil
}
