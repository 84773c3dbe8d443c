package remote

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database. Document ids are stored in _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore creates a MongoStore on the named database
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// RunTransaction requires a replica set or sharded cluster.
func (s *MongoStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return classifyMongo(err)
	}
	defer session.EndSession(ctx)

	var fnErr error
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		fnErr = fn(sc, &mongoTx{db: s.db, ctx: sc})
		return nil, fnErr
	})
	if err != nil {
		if fnErr != nil {
			return fnErr
		}
		return classifyMongo(err)
	}
	return nil
}

// Batch applies ops inside one transaction.
func (s *MongoStore) Batch(ctx context.Context, ops []Op) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpSet:
				err = tx.Set(op.Collection, op.ID, op.Doc)
			case OpMerge:
				err = tx.Merge(op.Collection, op.ID, op.Fields)
			case OpDelete:
				err = tx.Delete(op.Collection, op.ID)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Get(ctx context.Context, id string) (Document, error) {
	return mongoGet(ctx, c.coll, id)
}

func (c *mongoCollection) Set(ctx context.Context, id string, doc Document) error {
	return mongoSet(ctx, c.coll, id, doc)
}

func (c *mongoCollection) Merge(ctx context.Context, id string, fields map[string]any) error {
	return mongoUpdate(ctx, c.coll, id, bson.M{"$set": bson.M(copyMap(fields))})
}

func (c *mongoCollection) Delete(ctx context.Context, id string) error {
	return mongoDelete(ctx, c.coll, id)
}

func (c *mongoCollection) Increment(ctx context.Context, id, path string, delta int64) error {
	return mongoUpdate(ctx, c.coll, id, bson.M{"$inc": bson.M{path: delta}})
}

func (c *mongoCollection) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	dir := 1
	if q.Descending {
		dir = -1
	}
	sort := bson.D{}
	if q.OrderBy != "" {
		sort = append(sort, bson.E{Key: q.OrderBy, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: dir})

	findOptions := options.Find().SetSort(sort)
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		findOptions.SetSkip(int64(q.Offset))
	}

	cursor, err := c.coll.Find(ctx, mongoFilter(q), findOptions)
	if err != nil {
		return nil, classifyMongo(err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err = cursor.All(ctx, &raws); err != nil {
		return nil, classifyMongo(err)
	}
	out := make([]Snapshot, 0, len(raws))
	for _, raw := range raws {
		id := fmt.Sprint(fromBSONValue(raw["_id"]))
		out = append(out, Snapshot{ID: id, Data: fromBSON(raw)})
	}
	return out, nil
}

var mongoOperators = map[Operator]string{
	OpLess:         "$lt",
	OpLessEqual:    "$lte",
	OpGreater:      "$gt",
	OpGreaterEqual: "$gte",
	OpIn:           "$in",
}

func mongoFilter(q Query) bson.M {
	var clauses bson.A
	for _, f := range q.Filters {
		value := copyValue(f.Value)
		switch f.Op {
		case OpEqual, OpArrayContains:
			clauses = append(clauses, bson.M{f.Path: value})
		default:
			clauses = append(clauses, bson.M{f.Path: bson.M{mongoOperators[f.Op]: value}})
		}
	}
	if q.After != nil {
		op := "$gt"
		if q.Descending {
			op = "$lt"
		}
		if q.OrderBy == "" {
			clauses = append(clauses, bson.M{"_id": bson.M{op: q.After.ID}})
		} else {
			v := copyValue(q.After.Value)
			clauses = append(clauses, bson.M{"$or": bson.A{
				bson.M{q.OrderBy: bson.M{op: v}},
				bson.M{q.OrderBy: v, "_id": bson.M{op: q.After.ID}},
			}})
		}
	}
	if len(clauses) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": clauses}
}

type mongoTx struct {
	db  *mongo.Database
	ctx mongo.SessionContext
}

func (t *mongoTx) Get(collection, id string) (Document, error) {
	return mongoGet(t.ctx, t.db.Collection(collection), id)
}

func (t *mongoTx) Set(collection, id string, doc Document) error {
	return mongoSet(t.ctx, t.db.Collection(collection), id, doc)
}

func (t *mongoTx) Merge(collection, id string, fields map[string]any) error {
	return mongoUpdate(t.ctx, t.db.Collection(collection), id, bson.M{"$set": bson.M(copyMap(fields))})
}

func (t *mongoTx) Increment(collection, id, path string, delta int64) error {
	return mongoUpdate(t.ctx, t.db.Collection(collection), id, bson.M{"$inc": bson.M{path: delta}})
}

func (t *mongoTx) Delete(collection, id string) error {
	err := mongoDelete(t.ctx, t.db.Collection(collection), id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func mongoGet(ctx context.Context, coll *mongo.Collection, id string) (Document, error) {
	var raw bson.M
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		return nil, classifyMongo(err)
	}
	return fromBSON(raw), nil
}

func mongoSet(ctx context.Context, coll *mongo.Collection, id string, doc Document) error {
	body := bson.M(copyMap(doc))
	body["_id"] = id
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, body, options.Replace().SetUpsert(true))
	if err != nil {
		return classifyMongo(err)
	}
	return nil
}

func mongoUpdate(ctx context.Context, coll *mongo.Collection, id string, update bson.M) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return classifyMongo(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, coll.Name(), id)
	}
	return nil
}

func mongoDelete(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classifyMongo(err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, coll.Name(), id)
	}
	return nil
}

func classifyMongo(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// fromBSON converts a decoded document into plain Go values and drops _id.
func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = fromBSONValue(v)
	}
	return doc
}

func fromBSONValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromBSONValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromBSONValue(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSONValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSONValue(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	}
	return v
}
