// Package drawer renders the job graph to a Graphviz DOT file, with nodes
// coloured by job outcome.
package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

// DOTDrawer writes the pipeline graph as a DOT digraph. Feeding the output
// to `dot -Tsvg` produces the rendered image.
type DOTDrawer struct {
	fileName string
}

// NewDOTDrawer creates a drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	return &DOTDrawer{fileName: fileName}
}

// Draw renders the graph. Vertex "outcome" attributes, written by the
// scheduler as jobs settle, select the node colours.
func (d *DOTDrawer) Draw(g graph.Graph[string, model.Job]) error {
	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer file.Close()

	err = render(g, file)
	if err != nil {
		return errors.Wrapf(err, "unable to render graph to %s", d.fileName)
	}

	return nil
}

func render(g graph.Graph[string, model.Job], wrt io.Writer) error {
	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return errors.Wrap(err, "unable to get adjacency map")
	}

	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if _, err := fmt.Fprintln(wrt, "strict digraph {"); err != nil {
		return errors.Wrap(err, "unable to write graph header")
	}

	for _, id := range ids {
		job, properties, err := g.VertexWithProperties(id)
		if err != nil {
			return errors.Wrapf(err, "unable to get vertex %s", id)
		}

		fill, label := vertexStyle(job, properties.Attributes["outcome"])

		_, err = fmt.Fprintf(wrt, "\t%q [ label=%q, style=\"filled\", fillcolor=%q ];\n", id, label, fill)
		if err != nil {
			return errors.Wrapf(err, "unable to write vertex %s", id)
		}
	}

	for _, id := range ids {
		targets := make([]string, 0, len(adjacency[id]))
		for target := range adjacency[id] {
			targets = append(targets, target)
		}
		sort.Strings(targets)

		for _, target := range targets {
			if _, err := fmt.Fprintf(wrt, "\t%q -> %q;\n", id, target); err != nil {
				return errors.Wrapf(err, "unable to write edge %s -> %s", id, target)
			}
		}
	}

	if _, err := fmt.Fprintln(wrt, "}"); err != nil {
		return errors.Wrap(err, "unable to write graph footer")
	}

	return nil
}

func vertexStyle(job model.Job, outcome string) (fill, label string) {
	label = job.ID
	if job.Required {
		label += " (required)"
	}
	if outcome != "" {
		label += "\n" + outcome
	}

	rgb := map[model.Outcome][3]uint8{
		model.OutcomeSucceeded: {45, 164, 78},
		model.OutcomeFailed:    {207, 34, 46},
		model.OutcomeCancelled: {219, 109, 40},
		model.OutcomeSkipped:   {110, 119, 129},
		model.OutcomeRunning:   {9, 105, 218},
	}

	channels, ok := rgb[model.Outcome(outcome)]
	if !ok {
		channels = [3]uint8{234, 238, 242}
	}

	c, err := colors.RGB(channels[0], channels[1], channels[2]) //nolint
	if err != nil {
		return "#ffffff", label
	}

	return c.ToHEX().String(), label
}
