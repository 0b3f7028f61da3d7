package statement

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// CurrentTimestamp is the server-time expression emitted for auto timestamps.
const CurrentTimestamp = "CURRENT_TIMESTAMP()"

// serverTime marks a value that renders as CurrentTimestamp. It is a distinct
// type so that a user string spelling the same text is still quoted.
type serverTime struct{}

// Escape doubles single quotes and backslashes so s can sit inside a
// single-quoted literal.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// Literal renders v as a SQL literal for the named column. Calendar dates and
// strings in columns whose name ends in _date become DATE literals; values of any
// unsupported type render NULL.
func Literal(field string, v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case serverTime:
		return CurrentTimestamp
	case civil.Date:
		return "DATE '" + x.String() + "'"
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return floatLiteral(float64(x))
	case float64:
		return floatLiteral(x)
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return stringLiteral(field, x.String())
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "NULL"
		}
		return x.String()
	case string:
		return stringLiteral(field, x)
	default:
		return "NULL"
	}
}

func floatLiteral(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func stringLiteral(field, s string) string {
	if strings.HasSuffix(field, "_date") {
		return "DATE '" + Escape(s) + "'"
	}
	return "'" + Escape(s) + "'"
}
