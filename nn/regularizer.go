package nn

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Regularizer turns a weight into a penalty term to be added to a cost.
type Regularizer interface {
	Penalty(w *G.Node) (*G.Node, error)
	fmt.Stringer
}

// L2 is weight decay: λ·Σw².
type L2 float64

// Penalty implements Regularizer.
func (r L2) Penalty(w *G.Node) (*G.Node, error) {
	m := maebe{dt: w.Dtype()}
	sq := m.do(func() (*G.Node, error) { return G.Square(w) })
	sum := m.do(func() (*G.Node, error) { return G.Sum(sq) })
	retVal := m.scale(sum, float64(r))
	return retVal, m.err
}

func (r L2) String() string { return fmt.Sprintf("l2(%g)", float64(r)) }

// regularizerOf interprets an option value as a Regularizer. Numbers are L2 factors; nil and 0 mean none.
func regularizerOf(v interface{}) (Regularizer, error) {
	switch r := v.(type) {
	case nil:
		return nil, nil
	case Regularizer:
		return r, nil
	case float64:
		if r == 0 {
			return nil, nil
		}
		return L2(r), nil
	case float32:
		return regularizerOf(float64(r))
	case int:
		return regularizerOf(float64(r))
	}
	return nil, errors.Errorf("cannot use %v (%T) as a regularizer", v, v)
}
