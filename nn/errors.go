package nn

import (
	"fmt"
	"strings"
)

// EnumError is returned when a method (or another closed choice) is not one of the supported values.
type EnumError struct {
	Kind  string // what was being chosen, e.g. "activation"
	Got   string
	Valid []string
}

func (err *EnumError) Error() string {
	return fmt.Sprintf("%s: method %s not found. Try again with %s", err.Kind, err.Got, enumerate(err.Valid))
}

// DimError is returned when an input has a spatial dimensionality a layer cannot handle.
type DimError struct {
	Layer     string
	Got       int
	Supported []int
}

func (err *DimError) Error() string {
	dims := make([]string, len(err.Supported))
	for i, d := range err.Supported {
		dims[i] = fmt.Sprintf("%dD", d)
	}
	return fmt.Sprintf("%s: only supports dimension %s, got %dD", err.Layer, enumerate(dims), err.Got)
}

// ArityError is returned when a layer is applied to the wrong number of inputs.
type ArityError struct {
	Layer    string
	Got      int
	Min, Max int // Max < 0 means unbounded
}

func (err *ArityError) Error() string {
	switch {
	case err.Min == err.Max:
		return fmt.Sprintf("%s: expected %d input(s), got %d", err.Layer, err.Min, err.Got)
	case err.Max < 0:
		return fmt.Sprintf("%s: expected at least %d inputs, got %d", err.Layer, err.Min, err.Got)
	}
	return fmt.Sprintf("%s: expected %d to %d inputs, got %d", err.Layer, err.Min, err.Max, err.Got)
}

// enumerate renders a list the way a person would: "a, b and c".
func enumerate(xs []string) string {
	switch len(xs) {
	case 0:
		return ""
	case 1:
		return xs[0]
	}
	return strings.Join(xs[:len(xs)-1], ", ") + " and " + xs[len(xs)-1]
}
