package thread

import "sort"

// NodeKind distinguishes participants from synthetic nodes
type NodeKind string

const (
	KindParticipant NodeKind = "participant"
	KindEntity      NodeKind = "entity"
)

// Default node colors
const (
	ParticipantColor = "#73edff"
	EntityColor      = "#000078"
)

// Node is one vertex of the interaction graph. Layout passes set X and Y in place.
type Node struct {
	ID               string       `json:"id" yaml:"id"`
	Name             string       `json:"name" yaml:"name"`
	Kind             NodeKind     `json:"kind" yaml:"kind"`
	Color            string       `json:"color,omitempty" yaml:"color,omitempty"`
	Size             int          `json:"size" yaml:"size"`
	InDegree         int          `json:"inDegree" yaml:"in_degree"`
	OutDegree        int          `json:"outDegree" yaml:"out_degree"`
	ResponseTimeMin  NullDuration `json:"responseTimeMin" yaml:"response_time_min"`
	ResponseTimeMax  NullDuration `json:"responseTimeMax" yaml:"response_time_max"`
	ResponseTimeMean NullDuration `json:"responseTimeMean" yaml:"response_time_mean"`
	X                float64      `json:"x" yaml:"x"`
	Y                float64      `json:"y" yaml:"y"`
}

// Link is the weighted aggregation of all interactions between an ordered pair
type Link struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Weight int    `json:"weight" yaml:"weight"`
}

// Graph is the finalized interaction graph
type Graph struct {
	Nodes []*Node       `json:"nodes" yaml:"nodes"`
	Edges []Interaction `json:"edges" yaml:"edges"`
}

// Assemble builds a graph from participant stats, interactions and synthetic
// entity nodes. Inputs are not modified.
func Assemble(stats []ParticipantStats, interactions []Interaction, entities []*Node) *Graph {
	g := &Graph{
		Nodes: make([]*Node, 0, len(stats)+len(entities)),
		Edges: append([]Interaction{}, interactions...),
	}

	for _, ps := range stats {
		summary := ps.Summary()
		g.Nodes = append(g.Nodes, &Node{
			ID:               ps.ID,
			Name:             ps.Name,
			Kind:             KindParticipant,
			Color:            ParticipantColor,
			Size:             ps.OutCount,
			InDegree:         ps.InCount,
			OutDegree:        ps.OutCount,
			ResponseTimeMin:  summary.Min,
			ResponseTimeMax:  summary.Max,
			ResponseTimeMean: summary.Mean,
		})
	}

	if len(entities) > 0 {
		inbound := make(map[string]int)
		for _, in := range interactions {
			inbound[in.TargetID]++
		}
		for _, e := range entities {
			node := *e
			node.Kind = KindEntity
			node.Size = 1
			node.InDegree = inbound[e.ID]
			g.Nodes = append(g.Nodes, &node)
		}
	}

	return g
}

// Finalize assembles the graph for everything recorded so far. It does not
// change the state, so repeated calls return equal graphs.
func (s *State) Finalize() *Graph {
	return Assemble(s.agg.Participants(), s.edges, s.entities)
}

// Node returns the node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Links aggregates edges by (source, target), heaviest first then by ids
func (g *Graph) Links() []Link {
	weights := make(map[[2]string]int)
	for _, e := range g.Edges {
		weights[[2]string{e.SourceID, e.TargetID}]++
	}

	links := make([]Link, 0, len(weights))
	for k, w := range weights {
		links = append(links, Link{Source: k[0], Target: k[1], Weight: w})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Weight != links[j].Weight {
			return links[i].Weight > links[j].Weight
		}
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})
	return links
}

// Participants returns the participant nodes only
func (g *Graph) Participants() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == KindParticipant {
			out = append(out, n)
		}
	}
	return out
}
