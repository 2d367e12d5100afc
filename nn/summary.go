package nn

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"

	"github.com/awalterschulze/gographviz"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/vecf32"
)

// row is one line of a summary, and one vertex of a plot.
type row struct {
	ID     int
	Title  string
	Shape  string
	Params int
	Detail string
}

// rows describes the input and every step. Weights shared by several steps are counted once.
func (m *Model) rows() []row {
	retVal := []row{{
		Title:  m.Input().Name(),
		Shape:  fmt.Sprint(m.Input().Shape()),
		Detail: "input",
	}}
	seen := make(map[*G.Node]struct{})
	for i, s := range m.steps {
		var params int
		for _, w := range s.layer.Learnables() {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			params += size(w)
		}
		retVal = append(retVal, row{
			ID:     i + 1,
			Title:  s.layer.Title(),
			Shape:  fmt.Sprint(m.nodes[i+1].Shape()),
			Params: params,
			Detail: s.layer.Detail(),
		})
	}
	return retVal
}

func size(w *G.Node) int {
	if w.IsScalar() {
		return 1
	}
	return w.Shape().TotalSize()
}

// norm is the L2 norm of the current values of ws.
func norm(ws G.Nodes) float64 {
	var sum float64
	for _, w := range ws {
		if w.Value() == nil {
			continue
		}
		switch data := w.Value().Data().(type) {
		case []float32:
			sq := make([]float32, len(data))
			copy(sq, data)
			vecf32.Mul(sq, sq)
			sum += float64(vecf32.Sum(sq))
		case float32:
			sum += float64(data * data)
		case []float64:
			for _, v := range data {
				sum += v * v
			}
		case float64:
			sum += data * data
		}
	}
	return math.Sqrt(sum)
}

// Summary writes a table of the layers of the model: title, output shape, parameters and detail,
// followed by the parameter totals.
func (m *Model) Summary(w io.Writer) error {
	rows := m.rows()
	header := []string{"Layer", "Output Shape", "Param #", "Detail"}
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	var total int
	for _, r := range rows {
		cells = append(cells, []string{r.Title, r.Shape, fmt.Sprint(r.Params), r.Detail})
		total += r.Params
	}

	widths := make([]int, len(header))
	for _, line := range cells {
		for i, c := range line {
			if n := runewidth.StringWidth(c); n > widths[i] {
				widths[i] = n
			}
		}
	}
	width := len(widths) - 1
	for _, n := range widths {
		width += n + 2
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Model: %s\n", m.Name())
	buf.WriteString(strings.Repeat("=", width) + "\n")
	for i, line := range cells {
		for j, c := range line {
			if j > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(runewidth.FillRight(c, widths[j]+2))
		}
		buf.WriteString("\n")
		if i == 0 {
			buf.WriteString(strings.Repeat("=", width) + "\n")
		}
	}
	buf.WriteString(strings.Repeat("=", width) + "\n")
	fmt.Fprintf(&buf, "Total params: %d\n", total)
	fmt.Fprintf(&buf, "Param norm: %.4f\n", norm(m.Learnables()))
	_, err := w.Write(buf.Bytes())
	return errors.WithStack(err)
}

// ToDot renders the model as a graphviz digraph, top to bottom if vertical, else left to right.
func (m *Model) ToDot(vertical bool) (string, error) {
	g := gographviz.NewEscape()
	if err := g.SetName(m.Name()); err != nil {
		return "", errors.WithStack(err)
	}
	if err := g.SetDir(true); err != nil {
		return "", errors.WithStack(err)
	}
	rankdir := "LR"
	if vertical {
		rankdir = "TB"
	}
	if err := g.AddAttr(m.Name(), "rankdir", rankdir); err != nil {
		return "", errors.WithStack(err)
	}

	var buf bytes.Buffer
	for _, r := range m.rows() {
		if err := dotTmpl.Execute(&buf, r); err != nil {
			return "", errors.WithStack(err)
		}
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		}
		buf.Reset()
		if err := g.AddNode(m.Name(), fmt.Sprint(r.ID), attrs); err != nil {
			return "", errors.WithStack(err)
		}
	}
	for i, s := range m.steps {
		for _, k := range s.inputs {
			if err := g.AddEdge(fmt.Sprint(k), fmt.Sprint(i+1), true, nil); err != nil {
				return "", errors.WithStack(err)
			}
		}
	}
	return g.String(), nil
}

const dotTmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>{{.Title}}</TD><TD>{{.Shape}}</TD></TR>
<TR><TD>Params</TD><TD>{{.Params}}</TD></TR>
<TR><TD COLSPAN="2">{{.Detail}}</TD></TR>
</TABLE>
>
`

var dotTmpl = template.Must(template.New("layer").Parse(dotTmplRaw))
