// Package hierarchy implements drill-down filtering: an ordered list of
// levels (each bound to one categorical column) and the filter path of
// selected values narrowing the active row set.
package hierarchy

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/gridsight-labs/gridsight/internal/table"
)

// Level is one rank in the drill-down dimension. Order is 0-based,
// contiguous and unique across the level list.
type Level struct {
	ID         string `json:"id" koanf:"id" yaml:"id"`
	Order      int    `json:"order" koanf:"order" yaml:"order"`
	ColumnName string `json:"columnName" koanf:"column" yaml:"column"`
}

// Entry is one selected value in a filter path.
type Entry struct {
	LevelID      string `json:"levelId"`
	LevelIndex   int    `json:"levelIndex"`
	ColumnName   string `json:"columnName"`
	Value        string `json:"value"`
	DisplayValue string `json:"displayValue,omitempty"`
}

// Path is the ordered sequence of selected values, a prefix of the level
// list from shallowest to deepest.
type Path []Entry

// SortLevels returns the levels ordered by their drill-down depth.
func SortLevels(levels []Level) []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ApplyFilterPath narrows rows to those matching every path entry: an AND
// of strict equality tests between the row's value at the level's column
// and the entry's value, in level order.
func ApplyFilterPath(rows []table.Row, path Path) []table.Row {
	if len(path) == 0 {
		return rows
	}
	var narrowed []table.Row
	for _, row := range rows {
		if matchesPath(row, path) {
			narrowed = append(narrowed, row)
		}
	}
	return narrowed
}

func matchesPath(row table.Row, path Path) bool {
	for _, entry := range path {
		cell, ok := row[entry.ColumnName]
		if !ok || cell.IsNull() {
			return false
		}
		if cell.Text() != entry.Value {
			return false
		}
	}
	return true
}

// SelectNode returns a new path with the entry at the given level set to
// value. Every entry deeper than that level is dropped in the same
// operation: selecting a node at a shallower level invalidates deeper
// selections, and leaving them in place would silently produce wrong
// aggregates.
func SelectNode(levels []Level, current Path, levelID, value, displayValue string) (Path, error) {
	ordered := SortLevels(levels)
	idx := -1
	var level Level
	for i, l := range ordered {
		if l.ID == levelID {
			idx = i
			level = l
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("unknown hierarchy level %q", levelID)
	}
	if idx > len(current) {
		return nil, fmt.Errorf("cannot select level %q at depth %d: only %d level(s) selected", levelID, idx, len(current))
	}

	next := make(Path, idx, idx+1)
	copy(next, current[:idx])
	next = append(next, Entry{
		LevelID:      level.ID,
		LevelIndex:   idx,
		ColumnName:   level.ColumnName,
		Value:        value,
		DisplayValue: displayValue,
	})
	return next, nil
}

// ResetToLevel removes the entry at the given level and everything
// deeper, equivalent to selecting "no filter" at that level. Resetting a
// level that is not part of the path returns the path unchanged.
func ResetToLevel(current Path, levelID string) Path {
	for i, entry := range current {
		if entry.LevelID == levelID {
			next := make(Path, i)
			copy(next, current[:i])
			return next
		}
	}
	return current
}

// NextLevel returns the next selectable level: levels[len(path)] if it
// exists. The path length equals the current drill depth.
func NextLevel(levels []Level, path Path) (Level, bool) {
	ordered := SortLevels(levels)
	if len(path) < len(ordered) {
		return ordered[len(path)], true
	}
	return Level{}, false
}

// EncodeQuery serializes the path to a URL-safe query parameter value:
// JSON, URL-encoded.
func EncodeQuery(path Path) string {
	if len(path) == 0 {
		return ""
	}
	data, err := json.Marshal(path)
	if err != nil {
		return ""
	}
	return url.QueryEscape(string(data))
}

// DecodeQuery parses a raw (still URL-escaped) query parameter produced
// by EncodeQuery. Malformed or undecodable input degrades to the empty
// path rather than failing navigation.
func DecodeQuery(raw string) Path {
	if raw == "" {
		return nil
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	return DecodePath(decoded)
}

// DecodePath parses the JSON form of a path whose URL escaping has
// already been undone, as net/http does for query parameter values.
// Unescaping again here would corrupt values containing '+' or '%'.
// Malformed JSON degrades to the empty path.
func DecodePath(data string) Path {
	if data == "" {
		return nil
	}
	var path Path
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return nil
	}
	return path
}
