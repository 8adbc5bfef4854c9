package feature

import (
	"fmt"
	"strconv"
	"strings"

	"granaflow/internal/core"
)

// FormatDateBR turns "YYYY-MM-DD" into "DD/MM/YYYY" using the date
// components as written, with no time zone involved. Anything that is not a
// valid calendar date comes back unchanged.
func FormatDateBR(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return s
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return s
		}
		n[i] = v
	}
	d := core.DateParts{Year: n[0], Month: n[1], Day: n[2]}
	if d.Year <= 0 || d.Validate() != nil {
		return s
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}
