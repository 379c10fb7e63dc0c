package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

/**
 * Convert a struct into an ordered map keyed by its json tags
 * @param {interface{}} v - Struct (or pointer to struct) describing one table row
 * @returns {*orderedmap.OrderedMap} Fields in declaration order
 * @description
 * - Goes through encoding/json so omitempty and renamed tags are honoured
 * - Field order follows the struct, which becomes the column order
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	om := orderedmap.New()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, err
	}
	return om, nil
}

// PrintFormat prints rows as a table on stdout.
func PrintFormat(rows []*orderedmap.OrderedMap) {
	FprintFormat(os.Stdout, rows)
}

/**
 * Render rows as a table
 * @param {io.Writer} w - Destination
 * @param {[]*orderedmap.OrderedMap} rows - Rows built by StructToOrderedMap
 * @description
 * - Columns come from the keys of the first row
 * - Keys missing from a later row are printed as "-"
 */
func FprintFormat(w io.Writer, rows []*orderedmap.OrderedMap) {
	if len(rows) == 0 {
		return
	}
	keys := rows[0].Keys()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatUpper

	header := make(table.Row, 0, len(keys))
	for _, k := range keys {
		header = append(header, k)
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, 0, len(keys))
		for _, k := range keys {
			v, ok := r.Get(k)
			if !ok || v == nil {
				row = append(row, "-")
				continue
			}
			row = append(row, cell(v))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return "-"
		}
		return x
	case float64:
		// json numbers; integers print without a fraction
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

// FormatBytes prints a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
