package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/hbnb/internal/model"
)

// linkClass tags link-table rows in the file.
const linkClass = "PlaceAmenity"

func linkKey(l model.Link) string {
	return linkClass + "." + l.PlaceID + "." + l.AmenityID
}

// encode renders the tables as indented JSON with sorted keys.
func encode(tables map[model.Kind]map[string]model.Entity, links map[model.Link]struct{}) ([]byte, error) {
	doc := make(map[string]map[string]any)
	for _, table := range tables {
		for _, e := range table {
			doc[model.Key(e)] = normalizeRecord(e.ToMap())
		}
	}
	for l := range links {
		doc[linkKey(l)] = normalizeRecord(map[string]any{
			model.ClassKey: linkClass,
			"place_id":     l.PlaceID,
			"amenity_id":   l.AmenityID,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode tables: %w", err)
	}
	return buf.Bytes(), nil
}

// normalizeRecord NFC-normalizes every string value so visually identical
// text always serializes to the same bytes.
func normalizeRecord(rec map[string]any) map[string]any {
	for k, v := range rec {
		if s, ok := v.(string); ok {
			rec[k] = norm.NFC.String(s)
		}
	}
	return rec
}

// decode parses a file body into fresh tables. Unknown classes are logged
// and skipped; any other malformed record fails the whole decode.
func decode(data []byte, logger *slog.Logger) (map[model.Kind]map[string]model.Entity, map[model.Link]struct{}, error) {
	tables := emptyTables()
	links := make(map[model.Link]struct{})
	if len(bytes.TrimSpace(data)) == 0 {
		return tables, links, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse file: %w", err)
	}

	for key, body := range raw {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, nil, fmt.Errorf("parse record %q: %w", key, err)
		}

		if rec[model.ClassKey] == linkClass {
			l, err := decodeLink(rec)
			if err != nil {
				return nil, nil, fmt.Errorf("record %q: %w", key, err)
			}
			links[l] = struct{}{}
			continue
		}

		e, err := model.FromMap(rec)
		if errors.Is(err, model.ErrUnknownKind) {
			logger.Warn("skipping record of unknown kind", "key", key, "class", rec[model.ClassKey])
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("record %q: %w", key, err)
		}
		tables[e.Kind()][e.Meta().ID] = e
	}
	return tables, links, nil
}

func decodeLink(rec map[string]any) (model.Link, error) {
	placeID, ok1 := rec["place_id"].(string)
	amenityID, ok2 := rec["amenity_id"].(string)
	if !ok1 || !ok2 || placeID == "" || amenityID == "" {
		return model.Link{}, fmt.Errorf("link row needs place_id and amenity_id")
	}
	return model.Link{PlaceID: placeID, AmenityID: amenityID}, nil
}

func emptyTables() map[model.Kind]map[string]model.Entity {
	tables := make(map[model.Kind]map[string]model.Entity, len(model.Kinds))
	for _, k := range model.Kinds {
		tables[k] = make(map[string]model.Entity)
	}
	return tables
}
