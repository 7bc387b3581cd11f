package record

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one row as an ordered column name to Value mapping. It encodes as a
// JSON object whose keys keep insertion order.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// Zip pairs column names with scanned row values by position. Extra names or
// values on the longer side are dropped.
func Zip(columns []string, values []any) *Record {
	r := &Record{fields: orderedmap.New[string, Value](min(len(columns), len(values)))}
	for i := 0; i < len(columns) && i < len(values); i++ {
		r.fields.Set(columns[i], FromDriver(values[i]))
	}
	return r
}

func (r *Record) Get(column string) (Value, bool) {
	return r.fields.Get(column)
}

func (r *Record) Len() int {
	return r.fields.Len()
}

// Columns returns the column names in order.
func (r *Record) Columns() []string {
	return keys(r.fields)
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return r.fields.MarshalJSON()
}

func keys(m *orderedmap.OrderedMap[string, Value]) []string {
	out := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
