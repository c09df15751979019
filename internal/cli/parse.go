package cli

import (
	"strconv"
	"strings"
)

// parseAssignments turns key=value arguments into attribute values.
//
// A double-quoted value is a string: underscores become spaces and \" is a
// literal quote. An unquoted value containing a dot is a float, anything else
// must be an integer. Arguments that fit none of these are returned in
// skipped and otherwise ignored.
func parseAssignments(args []string) (attrs map[string]any, skipped []string) {
	attrs = make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			skipped = append(skipped, arg)
			continue
		}
		v, ok := parseValue(raw)
		if !ok {
			skipped = append(skipped, arg)
			continue
		}
		attrs[key] = v
	}
	return attrs, skipped
}

func parseValue(raw string) (any, bool) {
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		s := raw[1 : len(raw)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
		return strings.ReplaceAll(s, "_", " "), true
	}
	if strings.Contains(raw, ".") {
		f, err := strconv.ParseFloat(raw, 64)
		return f, err == nil
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
