package sources_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"swapiexport/internal/etl"
	"swapiexport/internal/etl/sources"
)

func TestResolveSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	src, err := etl.ResolveSource(ctx, "https://swapi.dev/api/", etl.SourceOptions{})
	require.NoError(t, err)
	require.IsType(t, &sources.HTTP{}, src)

	dir := t.TempDir()
	src, err = etl.ResolveSource(ctx, dir, etl.SourceOptions{})
	require.NoError(t, err)
	require.IsType(t, &sources.CSVDir{}, src)

	_, err = etl.ResolveSource(ctx, "swapi.txt", etl.SourceOptions{})
	var ue *etl.UnrecognizedSourceFormatError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "source", ue.Kind)
}

func TestListSources_PriorityOrder(t *testing.T) {
	t.Parallel()

	var types []string
	for _, s := range etl.ListSources() {
		types = append(types, s.Type)
	}
	require.Equal(t, []string{"http", "xlsx", "json", "csv", "database"}, types)
}
