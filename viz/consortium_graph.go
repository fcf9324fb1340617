// ABOUTME: Graphviz rendering of a project consortium
// ABOUTME: Shows companies, their people and the missions they are paid for
package viz

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/memoire/budget"
	"github.com/harperreed/memoire/models"
	"github.com/harperreed/memoire/report"
)

// GenerateConsortiumGraph renders the project as an xdot graph. Companies link
// to the missions where they have a non-zero effective subtotal.
func GenerateConsortiumGraph(project *models.Project) (string, error) {
	var buf bytes.Buffer
	if err := RenderConsortiumGraph(context.Background(), project, graphviz.XDOT, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderConsortiumGraph writes the consortium graph to w in the given format.
func RenderConsortiumGraph(ctx context.Context, project *models.Project, format graphviz.Format, w io.Writer) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			fmt.Printf("Error closing graphviz: %v\n", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			fmt.Printf("Error closing graph: %v\n", err)
		}
	}()

	graph.SetLabel(project.Name)

	projectNode, err := graph.CreateNodeByName("project")
	if err != nil {
		return fmt.Errorf("failed to create project node: %w", err)
	}
	projectNode.SetLabel(fmt.Sprintf("%s\n%s", project.Name, report.Euro(project.WorksAmount)))
	projectNode.SetShape("doubleoctagon")
	projectNode.SetStyle("filled")
	projectNode.SetFillColor("gold")

	missionNodes := make(map[string]*cgraph.Node)
	for _, mission := range project.Missions {
		node, err := graph.CreateNodeByName(fmt.Sprintf("mission_%s", mission.ID.String()[:8]))
		if err != nil {
			return fmt.Errorf("failed to create mission node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n(%s)", mission.DisplayName(), mission.Category.Label()))
		node.SetShape("diamond")
		node.SetStyle("filled")
		node.SetFillColor("lightyellow")
		missionNodes[mission.ID.String()] = node

		edge, err := graph.CreateEdgeByName("", projectNode, node)
		if err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetStyle("dotted")
	}

	days := budget.LookupFromEstimation(budget.EffectiveEstimation(project))

	for i := range project.Companies {
		company := &project.Companies[i]
		companyNode, err := graph.CreateNodeByName(fmt.Sprintf("company_%s", company.ID.String()[:8]))
		if err != nil {
			return fmt.Errorf("failed to create company node: %w", err)
		}
		companyNode.SetShape("box")
		companyNode.SetStyle("filled")
		if project.MandataireID != nil && *project.MandataireID == company.ID {
			companyNode.SetLabel(fmt.Sprintf("%s\n(Mandataire)", company.Name))
			companyNode.SetFillColor("lightsalmon")
		} else {
			companyNode.SetLabel(fmt.Sprintf("%s\n(Cotraitant)", company.Name))
			companyNode.SetFillColor("lightblue")
		}

		for _, person := range company.People {
			node, err := graph.CreateNodeByName(fmt.Sprintf("person_%s", person.ID.String()[:8]))
			if err != nil {
				return fmt.Errorf("failed to create person node: %w", err)
			}
			label := person.Name
			if person.Role != "" {
				label += "\n" + person.Role
			}
			node.SetShape("ellipse")
			node.SetStyle("filled")
			if company.RepresentativeID != nil && *company.RepresentativeID == person.ID {
				label += "\n(Représentant)"
				node.SetFillColor("palegreen")
			} else {
				node.SetFillColor("lightgreen")
			}
			node.SetLabel(label)

			edge, err := graph.CreateEdgeByName("", node, companyNode)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}

		for _, mission := range project.Missions {
			amount := budget.EffectiveCompanySubtotal(mission.ID, company, days, project.PriceConstraints)
			if amount == 0 {
				continue
			}
			edge, err := graph.CreateEdgeByName("", companyNode, missionNodes[mission.ID.String()])
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			label := report.Euro(amount)
			if budget.FindConstraint(project.PriceConstraints, mission.ID, company.ID) != nil {
				label += " *"
			}
			edge.SetLabel(label)
		}
	}

	if err := gv.Render(ctx, graph, format, w); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	return nil
}
