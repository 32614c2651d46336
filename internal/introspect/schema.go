package introspect

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Column describes one column of a table, in the layout of MySQL's DESCRIBE
// output so every engine renders the same.
type Column struct {
	Field   string  `json:"Field"`
	Type    string  `json:"Type"`
	Null    string  `json:"Null"` // YES or NO
	Key     string  `json:"Key"`  // PRI for primary key columns
	Default *string `json:"Default"`
	Extra   string  `json:"Extra"`
}

func (c Column) Nullable() bool { return c.Null == "YES" }
func (c Column) PK() bool       { return c.Key == "PRI" }

// TableStructure is the column list of one table. It is recomputed on every
// describe and never persisted.
type TableStructure []Column

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// NewColumn builds a Column from the common scan results of the extractors.
func NewColumn(name, typ string, nullable, pk bool, dflt *string, extra string) Column {
	c := Column{Field: name, Type: typ, Null: yesNo(nullable), Default: dflt, Extra: extra}
	if pk {
		c.Key = "PRI"
	}
	return c
}

// ExampleValue returns a placeholder value for a column type.
func ExampleValue(c Column) interface{} {
	t := strings.ToLower(c.Type)
	switch {
	case strings.HasPrefix(t, "tinyint(1)"), strings.Contains(t, "bool"), t == "bit":
		return true
	case strings.Contains(t, "int"), strings.Contains(t, "serial"):
		return 1
	case strings.Contains(t, "dec"), strings.Contains(t, "numeric"), strings.Contains(t, "float"),
		strings.Contains(t, "double"), strings.Contains(t, "real"), strings.Contains(t, "money"):
		return 1.5
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"):
		return "2024-01-01T00:00:00Z"
	case strings.Contains(t, "date"):
		return "2024-01-01"
	case strings.Contains(t, "time"):
		return "00:00:00"
	case strings.Contains(t, "json"):
		return map[string]interface{}{}
	case strings.Contains(t, "uuid"), strings.Contains(t, "uniqueidentifier"):
		return "00000000-0000-0000-0000-000000000000"
	default:
		return c.Field
	}
}

// ExampleObject renders one example row as a JSON object, keeping column order.
func ExampleObject(cols []Column) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Field)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ExampleValue(c))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExampleList renders a one-element JSON array holding ExampleObject.
func ExampleList(cols []Column) (json.RawMessage, error) {
	obj, err := ExampleObject(cols)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(obj)+2)
	out = append(out, '[')
	out = append(out, obj...)
	out = append(out, ']')
	return out, nil
}
