package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/hbnb/internal/model"
)

// render formats an entity the way the console prints it:
// "[Kind] (id) {attributes}".
func render(e model.Entity) string {
	attrs := e.ToMap()
	delete(attrs, model.ClassKey)
	body, err := json.Marshal(attrs)
	if err != nil {
		body = []byte(fmt.Sprint(attrs))
	}
	return fmt.Sprintf("[%s] (%s) %s", e.Kind(), e.Meta().ID, body)
}

// present returns the payload for one entity: its record for JSON output,
// its rendered line for text.
func present(out *OutputFormatter, e model.Entity) any {
	if out.Format == "json" {
		return e.ToMap()
	}
	return render(e)
}

// presentAll orders entities by kind, then id.
func presentAll[T model.Entity](out *OutputFormatter, entities []T) any {
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if a.Kind() != b.Kind() {
			return a.Kind() < b.Kind()
		}
		return a.Meta().ID < b.Meta().ID
	})
	if out.Format == "json" {
		records := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			records = append(records, e.ToMap())
		}
		return records
	}
	lines := make([]string, 0, len(entities))
	for _, e := range entities {
		lines = append(lines, render(e))
	}
	return lines
}

func values(m map[string]model.Entity) []model.Entity {
	out := make([]model.Entity, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	return out
}
