package registry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatValue renders value with d's kind and format. See Registry.FormatValue.
func (d Definition) FormatValue(value float64) string {
	if value == 0 && !d.PrintIfZero {
		return ""
	}
	var s string
	switch d.Kind {
	case KindElapsed:
		s = FormatElapsed(value)
	case KindSize:
		s = FormatSize(value)
	default:
		s = FormatNumber(value)
	}
	return fmt.Sprintf(d.Format, s)
}

// FormatNumber prints the shortest decimal representation of v, so whole
// numbers have no fractional part.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type timeUnit struct {
	seconds int64
	name    string
}

var timeUnits = []timeUnit{
	{7 * 86400, "week"},
	{86400, "day"},
	{3600, "hour"},
	{60, "minute"},
	{1, "second"},
}

// FormatElapsed turns a number of seconds into a phrase like
// "1 hour, 1 minute, and 1 second". Fractions of a second are dropped.
func FormatElapsed(seconds float64) string {
	rest := int64(math.Floor(seconds))
	parts := make([]string, 0, len(timeUnits))
	for _, u := range timeUnits {
		n := rest / u.seconds
		rest %= u.seconds
		if n <= 0 {
			continue
		}
		name := u.name
		if n != 1 {
			name += "s"
		}
		parts = append(parts, strconv.FormatInt(n, 10)+" "+name)
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		parts[len(parts)-1] = "and " + parts[len(parts)-1]
		return strings.Join(parts, ", ")
	}
}

// FormatSize scales bytes to the largest binary unit not exceeding the value
// and prints it with one fractional digit, e.g. 1536 -> "1.5KB".
func FormatSize(bytes float64) string {
	for i := len(sizeUnits) - 1; i > 0; i-- {
		factor := math.Pow(1024, float64(i))
		if bytes >= factor {
			return fmt.Sprintf("%.1f%s", bytes/factor, sizeUnits[i])
		}
	}
	return fmt.Sprintf("%.1f%s", bytes, sizeUnits[0])
}
