// internal/watch/transition.go
package watch

import (
	"fmt"

	"github.com/tamzrod/iap-bootstate/internal/iap"
)

// Transition is one observed change between two snapshots.
type Transition struct {
	Field string
	From  string
	To    string
}

func (t Transition) String() string {
	return fmt.Sprintf("%s: %s -> %s", t.Field, t.From, t.To)
}

// Transitions lists what changed from prev to next, in slot-map order.
func Transitions(prev, next iap.Snapshot) []Transition {
	var out []Transition

	if prev.Phase() != next.Phase() {
		out = append(out, Transition{
			Field: "request",
			From:  prev.Phase().String(),
			To:    next.Phase().String(),
		})
	}

	if prev.BootCount != next.BootCount {
		out = append(out, Transition{
			Field: "boot_count",
			From:  fmt.Sprint(prev.BootCount),
			To:    fmt.Sprint(next.BootCount),
		})
	}

	for i := range next.Commands {
		if prev.Commands[i] != next.Commands[i] {
			out = append(out, Transition{
				Field: fmt.Sprintf("command[%d]", i),
				From:  fmt.Sprintf("0x%08X", prev.Commands[i]),
				To:    fmt.Sprintf("0x%08X", next.Commands[i]),
			})
		}
	}

	return out
}
