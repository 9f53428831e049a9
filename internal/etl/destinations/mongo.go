package destinations

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"swapiexport/internal/dbclient"
	"swapiexport/internal/etl"
)

// ── MongoDB Destination ────────────────────────────────────
// Each table is loaded into a staging collection and renamed over the
// target once every table has been staged.

const stagingSuffix = "__staging"

type mongoDestination struct{}

func init() { etl.RegisterDestination(&mongoDestination{}) }

func (d *mongoDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{
		Type:     "mongodb",
		Label:    "MongoDB",
		Priority: 40,
		Help:     "mongodb:// or mongodb+srv:// URI; the path names the database (default swapi)",
	}
}

func (d *mongoDestination) Match(locator string) bool {
	drv, ok := dbclient.DetectDriver(locator)
	return ok && drv == dbclient.DriverMongoDB
}

func (d *mongoDestination) Open(locator string) (etl.Destination, error) {
	return &Mongo{uri: locator}, nil
}

// Mongo writes one collection per table.
type Mongo struct {
	uri string
}

func NewMongo(uri string) *Mongo { return &Mongo{uri: uri} }

func (m *Mongo) Export(ctx context.Context, tables []*etl.Table) (err error) {
	target := dbclient.Redact(m.uri)
	names, err := etl.TargetNames(target, tables)
	if err != nil {
		return err
	}

	client, dbName, err := dbclient.ConnectMongo(ctx, m.uri)
	if err != nil {
		return &etl.ExportError{Target: target, Err: err}
	}
	defer client.Disconnect(context.Background())
	db := client.Database(dbName)

	var staged []*mongo.Collection
	defer func() {
		if err != nil {
			for _, c := range staged {
				c.Drop(context.Background())
			}
		}
	}()

	for i, t := range tables {
		coll := db.Collection(names[i] + stagingSuffix)
		if err = coll.Drop(ctx); err != nil {
			return &etl.ExportError{Target: target, Table: t.Name, Err: fmt.Errorf("reset staging: %w", err)}
		}
		staged = append(staged, coll)
		if t.Len() == 0 {
			continue
		}
		if _, err = coll.InsertMany(ctx, documents(t)); err != nil {
			return &etl.ExportError{Target: target, Table: t.Name, Err: fmt.Errorf("insert: %w", err)}
		}
	}

	admin := client.Database("admin")
	for i, t := range tables {
		if t.Len() == 0 {
			if err = db.Collection(names[i]).Drop(ctx); err != nil {
				return &etl.ExportError{Target: target, Table: t.Name, Err: err}
			}
			continue
		}
		cmd := bson.D{
			{Key: "renameCollection", Value: dbName + "." + names[i] + stagingSuffix},
			{Key: "to", Value: dbName + "." + names[i]},
			{Key: "dropTarget", Value: true},
		}
		if err = admin.RunCommand(ctx, cmd).Err(); err != nil {
			return &etl.ExportError{Target: target, Table: t.Name, Err: fmt.Errorf("rename: %w", err)}
		}
	}
	return nil
}

// documents converts rows to BSON documents that keep column order.
func documents(t *etl.Table) []bson.D {
	docs := make([]bson.D, len(t.Rows))
	for i := range t.Rows {
		vals := t.Values(i)
		doc := make(bson.D, 0, len(vals))
		for j, v := range vals {
			doc = append(doc, bson.E{Key: t.Columns[j], Value: v})
		}
		docs[i] = doc
	}
	return docs
}
