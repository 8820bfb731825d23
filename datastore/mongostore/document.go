// ABOUTME: BSON document build and decode driven by registry metadata
// ABOUTME: Times persist as BSON dates, decimals as strings, relations as key arrays

package mongostore

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/2389/modeladmin/metadata"
)

// buildDocument renders the instance as BSON. The key persists as _id
// whatever its declared column name.
func buildDocument(model *metadata.Model, inst *metadata.Instance) (bson.M, error) {
	doc := bson.M{}
	for _, f := range model.Fields {
		key := f.BSONKey
		if f.PrimaryKey {
			key = "_id"
		}
		if f.Many {
			doc[key] = manyArray(inst.Get(f))
			continue
		}
		v, err := encodeValue(f, inst.Get(f))
		if err != nil {
			return nil, err
		}
		doc[key] = v
	}
	return doc, nil
}

// decodeDocument builds an instance from a BSON document. Missing or
// null values leave the field at its zero value, so projected partial
// documents decode cleanly.
func decodeDocument(model *metadata.Model, doc bson.M) (*metadata.Instance, error) {
	inst := model.New()
	for _, f := range model.Fields {
		key := f.BSONKey
		if f.PrimaryKey {
			key = "_id"
		}
		raw, ok := doc[key]
		if !ok || raw == nil {
			continue
		}

		if f.Many {
			vals, err := metadata.ParseKeys(f, rawKeys(raw))
			if err != nil {
				return nil, fmt.Errorf("decoding %s.%s: %w", model.Name, f.Name, err)
			}
			if err := inst.Set(f, vals); err != nil {
				return nil, fmt.Errorf("decoding %s.%s: %w", model.Name, f.Name, err)
			}
			continue
		}

		v, err := decodeValue(f, raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", model.Name, f.Name, err)
		}
		if err := inst.Set(f, v); err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", model.Name, f.Name, err)
		}
	}
	return inst, nil
}

func encodeValue(f *metadata.Field, v any) (any, error) {
	switch f.TypeName {
	case "time.Time":
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("field %s: not a time.Time", f.Name)
		}
		if t.IsZero() {
			return nil, nil
		}
		return t.UTC(), nil
	case "decimal.Decimal":
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("field %s: not a decimal.Decimal", f.Name)
		}
		return d.String(), nil
	case "primitive.ObjectID":
		id, ok := v.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("field %s: not an object id", f.Name)
		}
		return id, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	}
	return nil, fmt.Errorf("field %s: no document encoding for %s", f.Name, f.TypeName)
}

func decodeValue(f *metadata.Field, raw any) (any, error) {
	switch f.TypeName {
	case "time.Time":
		switch t := raw.(type) {
		case primitive.DateTime:
			return t.Time().UTC(), nil
		case time.Time:
			return t.UTC(), nil
		}
		return nil, fmt.Errorf("field %s: unexpected date value %T", f.Name, raw)
	case "decimal.Decimal":
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: unexpected decimal value %T", f.Name, raw)
		}
		if s == "" {
			return decimal.Decimal{}, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: parsing decimal %q: %w", f.Name, s, err)
		}
		return d, nil
	case "primitive.ObjectID":
		id, ok := raw.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("field %s: unexpected id value %T", f.Name, raw)
		}
		return id, nil
	}

	switch v := raw.(type) {
	case bool:
		return v, nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return v, nil
	case string:
		return v, nil
	}
	return nil, fmt.Errorf("field %s: unhandled BSON value %T", f.Name, raw)
}

// manyArray renders a relation slice as a BSON array of keys.
func manyArray(v any) bson.A {
	rv := reflect.ValueOf(v)
	out := bson.A{}
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return out
	}
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		switch elem.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, elem.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, int64(elem.Uint()))
		default:
			out = append(out, metadata.KeyString(elem.Interface()))
		}
	}
	return out
}

// rawKeys renders a BSON array as key strings.
func rawKeys(raw any) []string {
	arr, ok := raw.(bson.A)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, elem := range arr {
		switch e := elem.(type) {
		case int32:
			out = append(out, strconv.FormatInt(int64(e), 10))
		case int64:
			out = append(out, strconv.FormatInt(e, 10))
		case string:
			out = append(out, e)
		case primitive.ObjectID:
			out = append(out, e.Hex())
		default:
			out = append(out, fmt.Sprintf("%v", e))
		}
	}
	return out
}
