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

func TestCSVDir_Fetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "planets.csv"),
		[]byte("name,diameter,habitable,notes\nTatooine,10465,true,\nHoth,7200,false,\"cold, very\"\n"), 0o644))

	src := sources.NewCSVDir(dir)
	records, err := src.Fetch(context.Background(), "planets/")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []string{"name", "diameter", "habitable", "notes"}, records[0].Fields)
	require.Equal(t, 10465.0, records[0].Data["diameter"])
	require.Equal(t, true, records[0].Data["habitable"])
	require.Nil(t, records[0].Data["notes"])
	require.Equal(t, "cold, very", records[1].Data["notes"])
}

func TestCSVDir_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := sources.NewCSVDir(t.TempDir()).Fetch(context.Background(), "people")
	require.True(t, etl.IsUnknownEntity(err))
}
