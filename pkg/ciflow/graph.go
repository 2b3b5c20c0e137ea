package ciflow

import (
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-ciflow/internal/store"
	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

// Graph is a validated, acyclic dependency graph of jobs. It is immutable
// after construction apart from vertex annotations, and safe for concurrent
// reads.
type Graph struct {
	jobs  map[string]model.Job
	ids   []string // sorted
	store store.CustomStore[string, model.Job]
	g     graph.Graph[string, model.Job]

	needs      map[string][]string // sorted dependencies by job id
	dependants map[string][]string // sorted dependants by job id
}

// NewGraph builds and validates a dependency graph.
//
// It rejects empty or duplicate job ids, dependencies on undeclared jobs,
// self-dependencies and cycles. Cycles are reported as a *CycleError
// carrying the offending job ids; when a graph is rejected no job can ever
// be scheduled from it.
func NewGraph(jobs []model.Job) (*Graph, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}

	st := store.NewMemoryStore[string, model.Job]()
	g := graph.NewWithStore(jobHash, st, graph.Directed())

	byID := make(map[string]model.Job, len(jobs))
	ids := make([]string, 0, len(jobs))

	for _, job := range jobs {
		if job.ID == "" {
			return nil, errors.New("job id is required")
		}
		if _, ok := byID[job.ID]; ok {
			return nil, errors.Wrap(ErrDuplicateJob, job.ID)
		}

		byID[job.ID] = job
		ids = append(ids, job.ID)

		if err := g.AddVertex(job); err != nil {
			return nil, errors.Wrapf(err, "unable to add job %s", job.ID)
		}
	}

	sort.Strings(ids)

	needs := make(map[string][]string, len(jobs))
	dependants := make(map[string][]string, len(jobs))

	for _, id := range ids {
		job := byID[id]
		seen := make(map[string]struct{}, len(job.Needs))

		for _, dep := range job.Needs {
			if dep == id {
				return nil, errors.Wrap(ErrSelfDependency, id)
			}
			if _, ok := byID[dep]; !ok {
				return nil, errors.Wrapf(ErrUnknownDependency, "%s needs %s", id, dep)
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}

			if err := g.AddEdge(dep, id); err != nil {
				return nil, errors.Wrapf(err, "unable to add edge from %s to %s", dep, id)
			}

			needs[id] = append(needs[id], dep)
			dependants[dep] = append(dependants[dep], id)
		}
	}

	for id := range needs {
		sort.Strings(needs[id])
	}
	for id := range dependants {
		sort.Strings(dependants[id])
	}

	out := &Graph{
		jobs:       byID,
		ids:        ids,
		store:      st,
		g:          g,
		needs:      needs,
		dependants: dependants,
	}

	if cycle := out.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	return out, nil
}

func jobHash(j model.Job) string { return j.ID }

// Len returns the number of jobs.
func (g *Graph) Len() int { return len(g.ids) }

// JobIDs returns all job ids in lexical order.
func (g *Graph) JobIDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Job returns a declared job by id.
func (g *Graph) Job(id string) (model.Job, bool) {
	job, ok := g.jobs[id]
	return job, ok
}

// Dependencies returns the direct dependencies of a job in lexical order.
func (g *Graph) Dependencies(id string) []string { return g.needs[id] }

// Dependants returns the direct dependants of a job in lexical order.
func (g *Graph) Dependants(id string) []string { return g.dependants[id] }

// Underlying exposes the backing graph for rendering.
func (g *Graph) Underlying() graph.Graph[string, model.Job] { return g.g }

// Annotate records the outcome as a vertex attribute so that renderers and
// status endpoints can read it off the graph.
func (g *Graph) Annotate(id string, outcome model.Outcome) {
	g.store.UpdateVertex(id, func(p *graph.VertexProperties) {
		if p.Attributes == nil {
			p.Attributes = make(map[string]string)
		}
		p.Attributes["outcome"] = string(outcome)
	})
}

// findCycle runs a depth-first search with recursion-stack marking over the
// dependant adjacency. Revisiting a job that is still on the stack proves a
// cycle; the returned path lists the cycle's job ids, closing on the first.
func (g *Graph) findCycle() []string {
	const (
		unvisited = iota
		onStack
		done
	)

	mark := make(map[string]int, len(g.ids))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		mark[id] = onStack
		stack = append(stack, id)

		for _, next := range g.dependants[id] {
			switch mark[next] {
			case onStack:
				// Close the loop from the first occurrence of next.
				for i, s := range stack {
					if s == next {
						cycle = append(cycle, stack[i:]...)
						break
					}
				}
				cycle = append(cycle, next)

				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		mark[id] = done

		return false
	}

	for _, id := range g.ids {
		if mark[id] == unvisited && visit(id) {
			return cycle
		}
	}

	return nil
}

// Batches returns a lazy iterator over topological batches. Each batch
// contains every job whose dependencies all appeared in earlier batches, so
// a batch is the maximum set of jobs that may run concurrently at that
// point. The iterator is finite and cannot be restarted.
func (g *Graph) Batches() *BatchIterator {
	indegree := make(map[string]int, len(g.ids))
	for _, id := range g.ids {
		indegree[id] = len(g.needs[id])
	}

	return &BatchIterator{g: g, indegree: indegree}
}

// BatchIterator yields successive topological batches of job ids.
type BatchIterator struct {
	g        *Graph
	indegree map[string]int
	yielded  int
}

// Next returns the next batch in lexical order, or false once every job has
// been yielded.
func (it *BatchIterator) Next() ([]string, bool) {
	if it.yielded == len(it.g.ids) {
		return nil, false
	}

	batch := make([]string, 0)
	for _, id := range it.g.ids {
		if it.indegree[id] == 0 {
			batch = append(batch, id)
		}
	}

	for _, id := range batch {
		// Guard against re-yielding on the next call.
		it.indegree[id] = -1
		for _, child := range it.g.dependants[id] {
			it.indegree[child]--
		}
	}

	it.yielded += len(batch)

	return batch, true
}
