// ABOUTME: Document datastore over the official MongoDB driver
// ABOUTME: Maps registry metadata to BSON documents keyed by _id

package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/form"
	"github.com/2389/modeladmin/metadata"
)

// Store persists registered models as BSON documents. The primary key
// field maps to _id whatever its declared column name; many-relations
// are key arrays inside the document, kept in sync on both declared
// sides. Reference fields in document models hold hex key strings.
type Store struct {
	client *mongo.Client // owned connection, nil when wrapping a caller's database
	db     *mongo.Database
	reg    *metadata.Registry
	logger *slog.Logger
}

var (
	_ datastore.Datastore = (*Store)(nil)
	_ datastore.Auditor   = (*Store)(nil)
)

// Open connects to uri and returns a store over the named database.
func Open(ctx context.Context, reg *metadata.Registry, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	s := New(client.Database(dbName), reg)
	s.client = client
	return s, nil
}

// New wraps an existing database handle. The caller keeps ownership of
// the client connection.
func New(db *mongo.Database, reg *metadata.Registry) *Store {
	return &Store{
		db:     db,
		reg:    reg,
		logger: slog.Default().With("component", "mongostore"),
	}
}

// Registry returns the model registry the store was built from.
func (s *Store) Registry() *metadata.Registry {
	return s.reg
}

// Close disconnects the client when the store opened it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) model(name string) (*metadata.Model, error) {
	model, ok := s.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, datastore.ErrNotRegistered)
	}
	return model, nil
}

func (s *Store) collection(model *metadata.Model) *mongo.Collection {
	return s.db.Collection(model.Collection)
}

// FindPage returns one page of instances sorted by _id.
func (s *Store) FindPage(ctx context.Context, modelName string, page, perPage int) (*datastore.Pagination, error) {
	model, err := s.model(modelName)
	if err != nil {
		return nil, err
	}
	page, perPage = datastore.NormalizePage(page, perPage)
	coll := s.collection(model)

	total, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", modelName, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cur, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", modelName, err)
	}
	defer cur.Close(ctx)

	var items []*metadata.Instance
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding %s document: %w", modelName, err)
		}
		inst, err := decodeDocument(model, doc)
		if err != nil {
			return nil, err
		}
		items = append(items, inst)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", modelName, err)
	}

	return &datastore.Pagination{Page: page, PerPage: perPage, Total: int(total), Items: items}, nil
}

// Find returns the instance with the given interface key.
func (s *Store) Find(ctx context.Context, modelName, key string) (*metadata.Instance, error) {
	model, err := s.model(modelName)
	if err != nil {
		return nil, err
	}
	filter, err := keyFilter(model, key)
	if err != nil {
		// A key that does not parse cannot match a document.
		return nil, fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}

	var doc bson.M
	err = s.collection(model).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s %s: %w", modelName, key, err)
	}
	return decodeDocument(model, doc)
}

// Save inserts or replaces the document and keeps declared reverse
// relation arrays on related documents in sync.
func (s *Store) Save(ctx context.Context, modelName string, inst *metadata.Instance) error {
	model, err := s.model(modelName)
	if err != nil {
		return err
	}
	if inst.Model() != model {
		return fmt.Errorf("save %s: instance is a %s", modelName, inst.Model().Name)
	}

	fresh := inst.KeyIsZero()
	if fresh {
		if !model.Key.Auto {
			return fmt.Errorf("save %s: key required", modelName)
		}
		if err := assignKey(model, inst); err != nil {
			return fmt.Errorf("save %s: %w", modelName, err)
		}
	}

	filter, err := keyFilter(model, inst.Key())
	if err != nil {
		return fmt.Errorf("save %s: bad key %q: %w", modelName, inst.Key(), err)
	}

	// The previous relation state drives the reverse sync below.
	var before bson.M
	if !fresh {
		err := s.collection(model).FindOne(ctx, filter).Decode(&before)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("loading %s %s: %w", modelName, inst.Key(), err)
		}
	}

	doc, err := buildDocument(model, inst)
	if err != nil {
		return fmt.Errorf("save %s: %w", modelName, err)
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(model).ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("saving %s %s: %w", modelName, inst.Key(), err)
	}

	for _, f := range model.ManyFields() {
		var prev []string
		if before != nil {
			prev = rawKeys(before[f.BSONKey])
		}
		now := keyList(inst.Get(f))
		if err := s.syncReverse(ctx, model, f, inst.Key(), diff(now, prev), diff(prev, now)); err != nil {
			return err
		}
	}
	return nil
}

// assignKey fills fresh auto keys. Integer keys have no document-store
// sequence and must be set by the caller.
func assignKey(model *metadata.Model, inst *metadata.Instance) error {
	if model.Key.TypeName == "primitive.ObjectID" {
		return inst.Set(model.Key, primitive.NewObjectID())
	}
	if model.Key.GoType().Kind() == reflect.String {
		return inst.SetKey(primitive.NewObjectID().Hex())
	}
	return fmt.Errorf("integer keys are not auto-assigned by the document store")
}

// syncReverse mirrors membership changes onto the related documents'
// declared reverse arrays.
func (s *Store) syncReverse(ctx context.Context, model *metadata.Model, f *metadata.Field, ownKey string, added, removed []string) error {
	target, reverse, ok := s.reg.ReverseOf(model, f)
	if !ok || reverse == nil {
		return nil
	}
	ownVal, err := arrayElem(reverse, ownKey)
	if err != nil {
		return nil
	}
	coll := s.db.Collection(target.Collection)

	for _, relKey := range added {
		relID, err := keyValue(target, relKey)
		if err != nil {
			continue
		}
		update := bson.D{{Key: "$addToSet", Value: bson.D{{Key: reverse.BSONKey, Value: ownVal}}}}
		if _, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: relID}}, update); err != nil {
			return fmt.Errorf("linking %s.%s: %w", target.Name, reverse.Name, err)
		}
	}
	for _, relKey := range removed {
		relID, err := keyValue(target, relKey)
		if err != nil {
			continue
		}
		update := bson.D{{Key: "$pull", Value: bson.D{{Key: reverse.BSONKey, Value: ownVal}}}}
		if _, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: relID}}, update); err != nil {
			return fmt.Errorf("unlinking %s.%s: %w", target.Name, reverse.Name, err)
		}
	}
	return nil
}

// Delete removes the document and pulls its key from every referencing
// relation array.
func (s *Store) Delete(ctx context.Context, modelName, key string) error {
	model, err := s.model(modelName)
	if err != nil {
		return err
	}
	filter, err := keyFilter(model, key)
	if err != nil {
		return fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}

	res, err := s.collection(model).DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", modelName, key, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}

	for _, other := range s.reg.Models() {
		for _, f := range other.ManyFields() {
			if f.Relation != model.Name {
				continue
			}
			val, err := arrayElem(f, key)
			if err != nil {
				continue
			}
			update := bson.D{{Key: "$pull", Value: bson.D{{Key: f.BSONKey, Value: val}}}}
			if _, err := s.db.Collection(other.Collection).UpdateMany(ctx, bson.D{}, update); err != nil {
				return fmt.Errorf("clearing links to %s %s: %w", modelName, key, err)
			}
		}
	}
	return nil
}

// ListRefs returns key/label pairs sorted by _id, projecting away the
// relation arrays the labels never need.
func (s *Store) ListRefs(ctx context.Context, modelName string) ([]datastore.Ref, error) {
	model, err := s.model(modelName)
	if err != nil {
		return nil, err
	}

	projection := bson.D{}
	for _, f := range model.Fields {
		if f.Many || f.PrimaryKey {
			continue
		}
		projection = append(projection, bson.E{Key: f.BSONKey, Value: 1})
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if len(projection) > 0 {
		opts.SetProjection(projection)
	}

	cur, err := s.collection(model).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", modelName, err)
	}
	defer cur.Close(ctx)

	var refs []datastore.Ref
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding %s document: %w", modelName, err)
		}
		inst, err := decodeDocument(model, doc)
		if err != nil {
			return nil, err
		}
		refs = append(refs, datastore.Ref{Key: inst.Key(), Label: inst.Display()})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", modelName, err)
	}
	return refs, nil
}

// keyValue converts an interface key string into the _id value.
func keyValue(model *metadata.Model, key string) (any, error) {
	f := model.Key
	if f.TypeName == "primitive.ObjectID" {
		return primitive.ObjectIDFromHex(key)
	}
	switch f.GoType().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(key, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	default:
		return key, nil
	}
}

func keyFilter(model *metadata.Model, key string) (bson.D, error) {
	v, err := keyValue(model, key)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: "_id", Value: v}}, nil
}

// arrayElem converts a key string to the value stored in a relation
// array, matching the slice's element kind.
func arrayElem(f *metadata.Field, key string) (any, error) {
	switch f.GoType().Elem().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(key, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	default:
		return key, nil
	}
}

func keyList(v any) []string {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, metadata.KeyString(rv.Index(i).Interface()))
	}
	return out
}

// diff returns the elements of a missing from b.
func diff(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		seen[s] = true
	}
	var out []string
	for _, s := range a {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// RegisterConverters installs document-specific form builders: object
// ids render read-only, like the keys they are.
func RegisterConverters(c *form.Converter) {
	c.Register("primitive.ObjectID", func(f *metadata.Field) form.Field {
		return form.NewReadOnlyField(f.Name, f.Label)
	})
}
