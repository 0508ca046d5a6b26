package engine

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Summary writes a table of the layers of n: name and class, output shape,
// parameter count and the producers each layer is connected to.
func Summary(w io.Writer, n Network) error {
	var g *Graph
	switch net := n.(type) {
	case *Model:
		g = net.graph
	case *Sequential:
		if net.model != nil {
			g = net.model.graph
		}
	}

	rule := strings.Repeat("_", 90)
	fmt.Fprintf(w, "Model: %q\n%s\n", n.Base().name, rule)

	// Rows are aligned together with the header, then the header rule is
	// spliced in.
	var table bytes.Buffer
	tw := tabwriter.NewWriter(&table, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Layer (type)\tOutput Shape\tParam #\tConnected to")

	for _, l := range n.Layers() {
		b := l.Base()
		shape := "multiple"
		var connected []string
		if g != nil {
			nodes := g.LayerNodes(l)
			if len(nodes) == 1 {
				shape = formatShapes(nodes[0])
			}
			for _, node := range nodes {
				for _, e := range node.inbound {
					connected = append(connected, fmt.Sprintf("%s[%d][%d]", e.layer.Base().name, e.nodeIndex, e.tensorIndex))
				}
			}
		}
		fmt.Fprintf(tw, "%s (%s)\t%s\t%d\t%s\n", b.name, l.ClassName(), shape, CountParams(l), strings.Join(connected, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	header, rows, _ := strings.Cut(table.String(), "\n")
	fmt.Fprintf(w, "%s\n%s\n%s", header, strings.Repeat("=", 90), rows)

	trainable, nonTrainable := 0, 0
	for _, wt := range n.TrainableWeights() {
		trainable += wt.Shape().NumElements()
	}
	for _, wt := range n.NonTrainableWeights() {
		nonTrainable += wt.Shape().NumElements()
	}
	_, err := fmt.Fprintf(w, "%s\nTotal params: %d\nTrainable params: %d\nNon-trainable params: %d\n%s\n",
		strings.Repeat("=", 90), trainable+nonTrainable, trainable, nonTrainable, rule)
	return err
}

func formatShapes(n *Node) string {
	if len(n.outputShapes) == 1 {
		return n.outputShapes[0].String()
	}
	parts := make([]string, len(n.outputShapes))
	for i, s := range n.outputShapes {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
