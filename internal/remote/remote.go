// Package remote defines the document-store capabilities the repositories consume and
// provides MongoDB, Firestore and in-memory implementations of them.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the store confirmed the document does not exist.
	ErrNotFound = errors.New("remote: document not found")
	// ErrUnavailable wraps network and availability failures. Callers treat it as transient.
	ErrUnavailable = errors.New("remote: store unavailable")
)

// Document is a schemaless remote record. Nested objects are map[string]any and
// lists are []any or typed slices; the document id is carried separately.
type Document map[string]any

// Snapshot is a document together with its id.
type Snapshot struct {
	ID   string
	Data Document
}

// Operator is a filter comparison.
type Operator string

const (
	OpEqual         Operator = "=="
	OpLess          Operator = "<"
	OpLessEqual     Operator = "<="
	OpGreater       Operator = ">"
	OpGreaterEqual  Operator = ">="
	OpIn            Operator = "in"
	OpArrayContains Operator = "array-contains"
)

// Filter restricts a query to documents whose field at Path satisfies Op against Value.
type Filter struct {
	Path  string
	Op    Operator
	Value any
}

// Where builds a Filter.
func Where(path string, op Operator, value any) Filter {
	return Filter{Path: path, Op: op, Value: value}
}

// Cursor identifies the item a forward page starts after: its id and its OrderBy value.
type Cursor struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Query describes a filtered, ordered, paginated read. Results are ordered by
// (OrderBy, document id), both in the same direction, so a Cursor is a total position.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
	After      *Cursor
}

// Collection is a keyed set of documents.
type Collection interface {
	Get(ctx context.Context, id string) (Document, error)
	// Set replaces the whole document, creating it if needed.
	Set(ctx context.Context, id string, doc Document) error
	// Merge updates the given dotted field paths of an existing document.
	Merge(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	// Increment atomically adds delta to the numeric field at path of an existing document.
	Increment(ctx context.Context, id, path string, delta int64) error
	Query(ctx context.Context, q Query) ([]Snapshot, error)
}

// Tx is a serializable read-modify-write scope. All reads must happen before writes.
type Tx interface {
	Get(collection, id string) (Document, error)
	Set(collection, id string, doc Document) error
	Merge(collection, id string, fields map[string]any) error
	Increment(collection, id, path string, delta int64) error
	Delete(collection, id string) error
}

// OpKind is the kind of a batched write.
type OpKind int

const (
	OpSet OpKind = iota
	OpMerge
	OpDelete
)

// Op is one unconditional write of a batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Doc        Document
	Fields     map[string]any
}

// Store is a remote document database.
type Store interface {
	Collection(name string) Collection
	// RunTransaction runs fn atomically; fn may be retried and must not have side effects.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Batch applies ops all-or-nothing.
	Batch(ctx context.Context, ops []Op) error
	Close(ctx context.Context) error
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether err is a transient store failure, including a deadline.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
