package repository

import (
	"fmt"
	"strings"
)

// bulkValues renders a VALUES list of rows tuples with sequential placeholders.
// casts holds one type suffix per column ("" for none).
func bulkValues(rows int, casts ...string) string {
	var b strings.Builder
	n := 1
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, cast := range casts {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d%s", n, cast)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
