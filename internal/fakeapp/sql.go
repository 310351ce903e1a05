package fakeapp

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	createTableRe = regexp.MustCompile(`(?is)^\s*create\s+table\s+(\w+)\s*\((.*)\)\s*;?\s*$`)
	insertRe      = regexp.MustCompile(`(?is)^\s*insert\s+into\s+(\w+)\s+values\s*\((.*)\)\s*;?\s*$`)
	dropTableRe   = regexp.MustCompile(`(?is)^\s*drop\s+table\s+(\w+)\s*;?\s*$`)
)

type table struct {
	columns []string
	rows    [][]string
}

// execute runs one statement against tables and returns the number of
// changed rows.
func execute(tables map[string]*table, query string) (int, error) {
	switch {
	case createTableRe.MatchString(query):
		m := createTableRe.FindStringSubmatch(query)
		name := strings.ToLower(m[1])
		if _, exists := tables[name]; exists {
			return 0, fmt.Errorf("relation %q already exists", name)
		}
		var cols []string
		for _, def := range splitList(m[2]) {
			fields := strings.Fields(def)
			if len(fields) < 2 {
				return 0, fmt.Errorf("invalid column definition %q", def)
			}
			cols = append(cols, fields[0])
		}
		if len(cols) == 0 {
			return 0, fmt.Errorf("table %q needs at least one column", name)
		}
		tables[name] = &table{columns: cols}
		return 0, nil
	case insertRe.MatchString(query):
		m := insertRe.FindStringSubmatch(query)
		name := strings.ToLower(m[1])
		t, ok := tables[name]
		if !ok {
			return 0, fmt.Errorf("relation %q does not exist", name)
		}
		values := splitList(m[2])
		if len(values) != len(t.columns) {
			return 0, fmt.Errorf("INSERT has %d values for %d columns", len(values), len(t.columns))
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = strings.Trim(strings.TrimSpace(v), "'")
		}
		t.rows = append(t.rows, row)
		return 1, nil
	case dropTableRe.MatchString(query):
		name := strings.ToLower(dropTableRe.FindStringSubmatch(query)[1])
		if _, ok := tables[name]; !ok {
			return 0, fmt.Errorf("relation %q does not exist", name)
		}
		delete(tables, name)
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported statement")
}

// splitList splits a comma separated list, ignoring commas inside quotes or
// parentheses.
func splitList(s string) []string {
	var (
		parts []string
		cur   strings.Builder
		depth int
		quote bool
	)
	for _, r := range s {
		switch {
		case r == '\'':
			quote = !quote
		case quote:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if last := strings.TrimSpace(cur.String()); last != "" {
		parts = append(parts, last)
	}
	return parts
}
