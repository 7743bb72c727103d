package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
)

/**
 * Convert a struct into an ordered map keyed by its json tags
 * @param {interface{}} v - Struct value
 * @returns {*orderedmap.OrderedMap} Keys keep the field declaration order
 * @returns {error} Returns error if v cannot be marshalled as a JSON object
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := orderedmap.New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

/**
 * Print rows as a table on stdout
 * @param {[]*orderedmap.OrderedMap} rows - Rows sharing the same keys
 * @description
 * - Column headers come from the keys of the first row, upper-cased
 */
func PrintFormat(rows []*orderedmap.OrderedMap) {
	WriteFormat(os.Stdout, rows)
}

func WriteFormat(w io.Writer, rows []*orderedmap.OrderedMap) {
	if len(rows) == 0 {
		return
	}
	keys := rows[0].Keys()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, k := range keys {
		header = append(header, strings.ToUpper(k))
	}
	t.AppendHeader(header)
	for _, r := range rows {
		row := table.Row{}
		for _, k := range keys {
			v, ok := r.Get(k)
			if !ok || v == nil || v == "" {
				v = "-"
			}
			row = append(row, fmt.Sprint(v))
		}
		t.AppendRow(row)
	}
	t.Render()
}
