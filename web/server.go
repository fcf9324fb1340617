// ABOUTME: Web UI server with embedded templates
// ABOUTME: Provides a read-only view of projects, budgets and consortium graphs at localhost:8080
package web

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/db"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
	"github.com/harperreed/memoire/viz"
)

//go:embed templates/*
var templatesFS embed.FS

type Server struct {
	repo      *db.ProjectRepository
	templates *template.Template
}

func NewServer(database *sql.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"euro":    report.Euro,
		"percent": report.Percent,
		"days":    report.Days,
		"label": func(c models.Category) string {
			return c.Label()
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		repo:      db.NewProjectRepository(database),
		templates: tmpl,
	}, nil
}

// Handler returns the routes of the web UI.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleProjects)
	mux.HandleFunc("GET /projects/{id}", s.handleProject)
	mux.HandleFunc("GET /projects/{id}/graph.svg", s.handleGraph)
	mux.HandleFunc("GET /projects/{id}/report.md", s.handleReport)
	return mux
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting web server at http://localhost%s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	projects, err := s.repo.List(r.Context(), query, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Title":           "Projets",
		"Query":           query,
		"Projects":        projects,
		"ContentTemplate": "projects-content",
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}

	data := map[string]interface{}{
		"Title":           project.Name,
		"Project":         project,
		"Companies":       companyViews(project),
		"ContentTemplate": "project-content",
	}

	// A project without works amount or percentages is still shown, without budget.
	summary, err := budget.Summarize(project)
	switch {
	case err == nil:
		data["Summary"] = summary
	case errors.Is(err, budget.ErrMissingProjectData):
		data["Missing"] = err.Error()
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := viz.RenderConsortiumGraph(r.Context(), project, graphviz.SVG, &buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}

	summary, err := budget.Summarize(project)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, budget.ErrMissingProjectData) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if _, err := w.Write([]byte(report.Markdown(project, summary))); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

type PersonView struct {
	Name           string
	Role           string
	Rate           float64
	Representative bool
}

type CompanyView struct {
	Name       string
	Mandataire bool
	People     []PersonView
}

func companyViews(project *models.Project) []CompanyView {
	views := make([]CompanyView, 0, len(project.Companies))
	for i := range project.Companies {
		company := &project.Companies[i]
		view := CompanyView{
			Name:       company.Name,
			Mandataire: project.MandataireID != nil && *project.MandataireID == company.ID,
		}
		for _, person := range company.People {
			view.People = append(view.People, PersonView{
				Name:           person.Name,
				Role:           person.Role,
				Rate:           person.Rate(),
				Representative: company.RepresentativeID != nil && *company.RepresentativeID == person.ID,
			})
		}
		views = append(views, view)
	}
	return views
}

func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return nil, false
	}

	project, err := s.repo.Load(r.Context(), id)
	if errors.Is(err, db.ErrProjectNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return project, true
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	// Render into a buffer so template errors still produce a clean 500
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("Template error rendering %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
