package destinations_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"swapiexport/internal/etl/destinations"
	"swapiexport/internal/etl/sources"
)

func TestJSONFile_Export(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "swapi.json")
	require.NoError(t, destinations.NewJSONFile(path).Export(context.Background(), sampleTables()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"people": [
			{"name":"Luke Skywalker","height":172,"jedi":true},
			{"name":"C-3PO","height":null,"jedi":false}
		],
		"planets": [{"name":"Tatooine","climate":"arid"}]
	}`, string(data))

	src, err := sources.OpenJSONFile(path)
	require.NoError(t, err)
	people, err := src.Fetch(context.Background(), "people")
	require.NoError(t, err)
	require.Equal(t, []string{"name", "height", "jedi"}, people[0].Fields)
}
