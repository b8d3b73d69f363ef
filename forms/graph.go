package forms

import (
	"fmt"

	"github.com/opencourts/pleaflow-go/contracts"
)

// Graph is the ordered registry of stage definitions. Declaration order is
// the authoritative fallback for "next stage" when a stage's branching policy
// records nothing explicit.
type Graph struct {
	order  []*StageDef
	byName map[string]*StageDef
}

// NewGraph creates an empty stage graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]*StageDef)}
}

// Register appends a stage definition to the graph.
func (g *Graph) Register(def *StageDef) error {
	if def == nil {
		return fmt.Errorf("stage definition cannot be nil")
	}
	if def.Name == "" {
		return fmt.Errorf("stage name cannot be empty")
	}
	if def.Name == contracts.JourneyBag {
		return fmt.Errorf("stage name %q is reserved", def.Name)
	}
	if _, exists := g.byName[def.Name]; exists {
		return fmt.Errorf("stage %q already registered", def.Name)
	}
	g.order = append(g.order, def)
	g.byName[def.Name] = def
	return nil
}

// MustRegister registers a stage and panics on error; intended for
// startup-time graph construction.
func (g *Graph) MustRegister(def *StageDef) *Graph {
	if err := g.Register(def); err != nil {
		panic(err)
	}
	return g
}

// Lookup resolves a stage by name.
func (g *Graph) Lookup(name string) (*StageDef, error) {
	def, ok := g.byName[name]
	if !ok {
		return nil, contracts.StageNotFoundError(name)
	}
	return def, nil
}

// Names returns the stage names in declaration order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.order))
	for i, def := range g.order {
		names[i] = def.Name
	}
	return names
}

// Start returns the first registered stage name.
func (g *Graph) Start() string {
	if len(g.order) == 0 {
		return ""
	}
	return g.order[0].Name
}

// Terminal returns the last registered stage name.
func (g *Graph) Terminal() string {
	if len(g.order) == 0 {
		return ""
	}
	return g.order[len(g.order)-1].Name
}

// Next returns the stage that follows current: the hint when provided,
// otherwise the stage immediately after current in declaration order,
// clamped to the last stage when current is already last.
func (g *Graph) Next(current, hint string) string {
	if hint != "" {
		return hint
	}
	for i, def := range g.order {
		if def.Name == current {
			if i+1 < len(g.order) {
				return g.order[i+1].Name
			}
			return def.Name
		}
	}
	return g.Terminal()
}
