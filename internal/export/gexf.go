package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alvmarrod/forum-weaver/internal/memory"
	"github.com/alvmarrod/forum-weaver/internal/thread"
)

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	Xmlns   string    `xml:"xmlns,attr"`
	Viz     string    `xml:"xmlns:viz,attr"`
	Version string    `xml:"version,attr"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfGraph struct {
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Mode            string         `xml:"mode,attr"`
	Attributes      gexfAttributes `xml:"attributes"`
	Nodes           []gexfNode     `xml:"nodes>node"`
	Edges           []gexfEdge     `xml:"edges>edge"`
}

type gexfAttributes struct {
	Class string     `xml:"class,attr"`
	Attrs []gexfAttr `xml:"attribute"`
}

type gexfAttr struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfNode struct {
	ID        string         `xml:"id,attr"`
	Label     string         `xml:"label,attr"`
	AttValues []gexfAttValue `xml:"attvalues>attvalue"`
	Size      gexfValue      `xml:"viz:size"`
	Position  gexfPosition   `xml:"viz:position"`
	Color     *gexfColor     `xml:"viz:color,omitempty"`
}

type gexfAttValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfValue struct {
	Value float64 `xml:"value,attr"`
}

type gexfPosition struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type gexfColor struct {
	R uint8 `xml:"r,attr"`
	G uint8 `xml:"g,attr"`
	B uint8 `xml:"b,attr"`
}

type gexfEdge struct {
	ID     string  `xml:"id,attr"`
	Source string  `xml:"source,attr"`
	Target string  `xml:"target,attr"`
	Weight float64 `xml:"weight,attr"`
}

var nodeAttributes = []gexfAttr{
	{ID: "0", Title: "kind", Type: "string"},
	{ID: "1", Title: "inDegree", Type: "integer"},
	{ID: "2", Title: "outDegree", Type: "integer"},
	{ID: "3", Title: "responseTimeMinMs", Type: "long"},
	{ID: "4", Title: "responseTimeMaxMs", Type: "long"},
	{ID: "5", Title: "responseTimeMeanMs", Type: "long"},
}

// WriteGEXF encodes the graph as GEXF 1.2 with viz size, position and color.
// Nodes are numbered in graph order and parallel edges are folded into weights.
func WriteGEXF(w io.Writer, g *thread.Graph) error {
	mg, err := memory.FromGraph(g)
	if err != nil {
		return fmt.Errorf("failed to index graph: %w", err)
	}

	doc := gexfDoc{
		Xmlns:   "http://gexf.net/1.2",
		Viz:     "http://gexf.net/1.2/viz",
		Version: "1.2",
		Graph: gexfGraph{
			DefaultEdgeType: "directed",
			Mode:            "static",
			Attributes:      gexfAttributes{Class: "node", Attrs: nodeAttributes},
		},
	}

	for _, n := range mg.Nodes() {
		node := gexfNode{
			ID:    strconv.Itoa(n.NodeID),
			Label: n.Label,
			AttValues: []gexfAttValue{
				{For: "0", Value: n.Kind},
				{For: "1", Value: strconv.Itoa(n.InDegree)},
				{For: "2", Value: strconv.Itoa(n.OutDegree)},
			},
			Size:     gexfValue{Value: float64(n.Size)},
			Position: gexfPosition{X: n.X, Y: n.Y},
			Color:    parseColor(n.Color),
		}
		// absent latencies are left out rather than written as zero
		for i, v := range []struct {
			ms    int64
			valid bool
		}{
			{n.ResponseTimeMin.Int64, n.ResponseTimeMin.Valid},
			{n.ResponseTimeMax.Int64, n.ResponseTimeMax.Valid},
			{n.ResponseTimeMean.Int64, n.ResponseTimeMean.Valid},
		} {
			if v.valid {
				node.AttValues = append(node.AttValues, gexfAttValue{For: strconv.Itoa(3 + i), Value: strconv.FormatInt(v.ms, 10)})
			}
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, node)
	}

	for i, e := range mg.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID:     strconv.Itoa(i),
			Source: strconv.Itoa(e.From),
			Target: strconv.Itoa(e.To),
			Weight: float64(e.Weight),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write gexf: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode gexf: %w", err)
	}
	return enc.Flush()
}

// parseColor reads "#rrggbb", nil for anything else
func parseColor(hex string) *gexfColor {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return nil
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil
	}
	return &gexfColor{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}
