package etl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"swapiexport/internal/etl"
	"swapiexport/internal/logger"
)

func newTestStore(t *testing.T, src etl.Source) *etl.Store {
	t.Helper()
	store, err := etl.NewStore(etl.StoreConfig{Logger: logger.NewTest(), Source: src})
	require.NoError(t, err)
	return store
}

func TestStoreConfig_Validate(t *testing.T) {
	t.Parallel()

	_, err := etl.NewStore(etl.StoreConfig{Source: &memSource{}})
	require.Error(t, err)
	_, err = etl.NewStore(etl.StoreConfig{Logger: logger.NewTest()})
	require.Error(t, err)
}

func TestStore_FetchEntity(t *testing.T) {
	t.Parallel()

	src := &memSource{data: map[string][]etl.Record{
		"people":  {rec("name", "Luke"), rec("name", "Leia")},
		"planets": {rec("name", "Tatooine")},
	}}
	store := newTestStore(t, src)
	ctx := context.Background()

	people, err := store.FetchEntity(ctx, "people")
	require.NoError(t, err)
	require.Equal(t, 2, people.Len())

	_, err = store.FetchEntity(ctx, "planets")
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	got, ok := store.Table("people")
	require.True(t, ok)
	require.Same(t, people, got)
}

func TestStore_FetchEntity_ErrorStoresNothing(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	store := newTestStore(t, &memSource{errs: map[string]error{"people": boom}})

	_, err := store.FetchEntity(context.Background(), "people")
	require.ErrorIs(t, err, boom)
	require.Zero(t, store.Len())
	_, ok := store.Table("people")
	require.False(t, ok)
}

func TestStore_RefetchKeepsPosition(t *testing.T) {
	t.Parallel()

	src := &memSource{data: map[string][]etl.Record{
		"people":  {rec("name", "Luke")},
		"planets": {rec("name", "Hoth")},
	}}
	store := newTestStore(t, src)
	ctx := context.Background()

	_, err := store.FetchEntity(ctx, "people")
	require.NoError(t, err)
	_, err = store.FetchEntity(ctx, "planets")
	require.NoError(t, err)

	src.data["people"] = []etl.Record{rec("name", "Luke"), rec("name", "Han")}
	_, err = store.FetchEntity(ctx, "people")
	require.NoError(t, err)

	tables := store.Tables()
	require.Len(t, tables, 2)
	require.Equal(t, "people", tables[0].Name)
	require.Equal(t, 2, tables[0].Len())
	require.Equal(t, "planets", tables[1].Name)
}

func TestStore_ApplyFilter(t *testing.T) {
	t.Parallel()

	src := &memSource{data: map[string][]etl.Record{
		"people": {rec("name", "Luke", "created", "x", "edited", "y")},
	}}
	store := newTestStore(t, src)
	_, err := store.FetchEntity(context.Background(), "people")
	require.NoError(t, err)

	removed := store.ApplyFilter("people", []string{"created", "edited", "homeworld"})
	require.Equal(t, []string{"created", "edited"}, removed)

	table, _ := store.Table("people")
	require.Equal(t, []string{"name"}, table.Columns)
}

func TestStore_ApplyFilter_KeepsRowsAndRetainedValues(t *testing.T) {
	t.Parallel()

	people := []etl.Record{
		rec("name", "Luke Skywalker", "height", 172.0, "mass", 77.0, "homeworld", "https://swapi.dev/api/planets/1/"),
		rec("name", "C-3PO", "height", 167.0, "mass", 75.0, "homeworld", "https://swapi.dev/api/planets/1/"),
		rec("name", "Leia Organa", "height", 150.0, "mass", nil, "homeworld", "https://swapi.dev/api/planets/2/"),
	}
	store := newTestStore(t, &memSource{data: map[string][]etl.Record{"people": people}})
	_, err := store.FetchEntity(context.Background(), "people")
	require.NoError(t, err)

	removed := store.ApplyFilter("people", []string{"height", "mass"})
	require.Equal(t, []string{"height", "mass"}, removed)

	table, ok := store.Table("people")
	require.True(t, ok)
	require.Equal(t, []string{"name", "homeworld"}, table.Columns)
	require.Equal(t, 3, table.Len())

	want := [][]any{
		{"Luke Skywalker", "https://swapi.dev/api/planets/1/"},
		{"C-3PO", "https://swapi.dev/api/planets/1/"},
		{"Leia Organa", "https://swapi.dev/api/planets/2/"},
	}
	for i := range want {
		require.Equal(t, want[i], table.Values(i), "row %d", i)
		require.Equal(t, []string{"name", "homeworld"}, table.Rows[i].Fields, "row %d", i)
	}
}

func TestStore_ApplyFilter_UnfetchedEntity(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, &memSource{})
	require.Nil(t, store.ApplyFilter("vehicles", []string{"url"}))
	require.Zero(t, store.Len())
}
