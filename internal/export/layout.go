package export

import (
	"math"

	"github.com/alvmarrod/forum-weaver/internal/thread"
)

// CircleLayout places nodes evenly on a circle in graph order. The radius
// grows with the node count so large threads stay readable.
func CircleLayout(g *thread.Graph) {
	n := len(g.Nodes)
	if n == 0 {
		return
	}
	if n == 1 {
		g.Nodes[0].X, g.Nodes[0].Y = 0, 0
		return
	}

	radius := 100 + 10*float64(n)
	for i, node := range g.Nodes {
		angle := 2 * math.Pi * float64(i) / float64(n)
		node.X = round2(radius * math.Cos(angle))
		node.Y = round2(radius * math.Sin(angle))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
