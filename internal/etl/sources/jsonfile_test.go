package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"swapiexport/internal/etl"
	"swapiexport/internal/etl/sources"
)

func TestJSONFile_Fetch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"people": [{"name":"Luke","mass":77,"films":["f1"]},{"name":"Leia","mass":null}],
		"planets": {"oops": true}
	}`), 0o644))

	src, err := sources.OpenJSONFile(path)
	require.NoError(t, err)

	records, err := src.Fetch(context.Background(), "people")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []string{"name", "mass", "films"}, records[0].Fields)
	require.Equal(t, 77.0, records[0].Data["mass"])
	require.Equal(t, `["f1"]`, records[0].Data["films"])
	require.Nil(t, records[1].Data["mass"])

	_, err = src.Fetch(context.Background(), "vehicles")
	require.True(t, etl.IsUnknownEntity(err))

	_, err = src.Fetch(context.Background(), "planets")
	var le *etl.SourceLoadError
	require.ErrorAs(t, err, &le)
}

func TestOpenJSONFile_NotAnObject(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0o644))

	_, err := sources.OpenJSONFile(path)
	var le *etl.SourceLoadError
	require.ErrorAs(t, err, &le)
}
