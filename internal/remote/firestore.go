package remote

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps a Firestore client obtained from the Firebase app.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Collection(name string) Collection {
	return &firestoreCollection{ref: s.client.Collection(name)}
}

func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var fnErr error
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = fn(ctx, &firestoreTx{client: s.client, tx: tx})
		return fnErr
	})
	if err != nil {
		if fnErr != nil {
			return fnErr
		}
		return classifyFirestore(err)
	}
	return nil
}

func (s *FirestoreStore) Batch(ctx context.Context, ops []Op) error {
	batch := s.client.Batch()
	for _, op := range ops {
		ref := s.client.Collection(op.Collection).Doc(op.ID)
		switch op.Kind {
		case OpSet:
			batch.Set(ref, firestoreData(op.Doc))
		case OpMerge:
			batch.Update(ref, firestoreUpdates(op.Fields))
		case OpDelete:
			batch.Delete(ref)
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return classifyFirestore(err)
	}
	return nil
}

type firestoreCollection struct {
	ref *firestore.CollectionRef
}

func (c *firestoreCollection) Get(ctx context.Context, id string) (Document, error) {
	snap, err := c.ref.Doc(id).Get(ctx)
	if err != nil {
		return nil, classifyFirestore(err)
	}
	return Document(snap.Data()), nil
}

func (c *firestoreCollection) Set(ctx context.Context, id string, doc Document) error {
	if _, err := c.ref.Doc(id).Set(ctx, firestoreData(doc)); err != nil {
		return classifyFirestore(err)
	}
	return nil
}

func (c *firestoreCollection) Merge(ctx context.Context, id string, fields map[string]any) error {
	if _, err := c.ref.Doc(id).Update(ctx, firestoreUpdates(fields)); err != nil {
		return classifyFirestore(err)
	}
	return nil
}

func (c *firestoreCollection) Delete(ctx context.Context, id string) error {
	if _, err := c.ref.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return classifyFirestore(err)
	}
	return nil
}

func (c *firestoreCollection) Increment(ctx context.Context, id, path string, delta int64) error {
	_, err := c.ref.Doc(id).Update(ctx, []firestore.Update{{Path: path, Value: firestore.Increment(delta)}})
	if err != nil {
		return classifyFirestore(err)
	}
	return nil
}

func (c *firestoreCollection) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	query := c.ref.Query
	for _, f := range q.Filters {
		query = query.Where(f.Path, string(f.Op), firestoreValue(f.Value))
	}
	dir := firestore.Asc
	if q.Descending {
		dir = firestore.Desc
	}
	if q.OrderBy != "" {
		query = query.OrderBy(q.OrderBy, dir)
	}
	query = query.OrderBy(firestore.DocumentID, dir)
	if q.After != nil {
		if q.OrderBy != "" {
			query = query.StartAfter(firestoreValue(q.After.Value), q.After.ID)
		} else {
			query = query.StartAfter(q.After.ID)
		}
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, classifyFirestore(err)
	}
	out := make([]Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, Snapshot{ID: d.Ref.ID, Data: Document(d.Data())})
	}
	return out, nil
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return nil, classifyFirestore(err)
	}
	return Document(snap.Data()), nil
}

func (t *firestoreTx) Set(collection, id string, doc Document) error {
	return t.tx.Set(t.client.Collection(collection).Doc(id), firestoreData(doc))
}

func (t *firestoreTx) Merge(collection, id string, fields map[string]any) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), firestoreUpdates(fields))
}

func (t *firestoreTx) Increment(collection, id, path string, delta int64) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), []firestore.Update{{Path: path, Value: firestore.Increment(delta)}})
}

func (t *firestoreTx) Delete(collection, id string) error {
	return t.tx.Delete(t.client.Collection(collection).Doc(id))
}

func firestoreData(doc Document) map[string]interface{} {
	return copyMap(doc)
}

func firestoreValue(v any) any {
	return copyValue(v)
}

func firestoreUpdates(fields map[string]any) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for path, v := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: copyValue(v)})
	}
	return updates
}

func classifyFirestore(err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
