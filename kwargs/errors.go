package kwargs

import "fmt"

// LookupError is returned when removing a name that was never registered.
type LookupError struct {
	Name string
}

func (err *LookupError) Error() string {
	return fmt.Sprintf("kwargs: %q is not registered", err.Name)
}
