package destinations_test

import (
	"swapiexport/internal/etl"
)

func rec(kv ...any) etl.Record {
	r := etl.NewRecord(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func sampleTables() []*etl.Table {
	return []*etl.Table{
		etl.NewTable("people", []etl.Record{
			rec("name", "Luke Skywalker", "height", 172.0, "jedi", true),
			rec("name", "C-3PO", "height", nil, "jedi", false),
		}),
		etl.NewTable("planets", []etl.Record{
			rec("name", "Tatooine", "climate", "arid"),
		}),
	}
}
