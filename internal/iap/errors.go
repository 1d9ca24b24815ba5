// internal/iap/errors.go
package iap

import "fmt"

// CommandIndexError indicates a boot command index outside the command slots.
// No register is read or written when it is returned.
type CommandIndexError struct {
	Index int
	Count int
}

func (e *CommandIndexError) Error() string {
	return fmt.Sprintf("boot command index %d is out of range: valid range is 0-%d",
		e.Index, e.Count-1)
}
