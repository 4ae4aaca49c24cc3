package docstore

import (
	"bytes"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matcher evaluates a Filter against raw documents the way MongoDB equality
// queries do: numbers compare by value regardless of their BSON width.
type matcher struct {
	want map[string]bson.RawValue
}

func newMatcher(f Filter) (*matcher, error) {
	m := &matcher{want: make(map[string]bson.RawValue, len(f))}
	for k, v := range f {
		rv, err := rawValue(v)
		if err != nil {
			return nil, fmt.Errorf("docstore: filter %s: %w", k, err)
		}
		m.want[k] = rv
	}
	return m, nil
}

func (m *matcher) match(doc bson.Raw) bool {
	for k, want := range m.want {
		got, err := doc.LookupErr(k)
		if err != nil {
			return false
		}
		if compareValues(got, want) != 0 || !sameKind(got, want) {
			return false
		}
	}
	return true
}

func rawValue(v any) (bson.RawValue, error) {
	t, data, err := bson.MarshalValue(v)
	if err != nil {
		return bson.RawValue{}, err
	}
	return bson.RawValue{Type: t, Value: data}, nil
}

func numeric(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return float64(v.Int32()), true
	case bsontype.Int64:
		return float64(v.Int64()), true
	case bsontype.Double:
		return v.Double(), true
	}
	return 0, false
}

func sameKind(a, b bson.RawValue) bool {
	_, an := numeric(a)
	_, bn := numeric(b)
	return (an && bn) || a.Type == b.Type
}

// compareValues orders two values of the same kind. Values of different
// kinds are ordered by type so that the result is total.
func compareValues(a, b bson.RawValue) int {
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if a.Type != b.Type {
		return int(a.Type) - int(b.Type)
	}
	switch a.Type {
	case bsontype.String:
		return compareStrings(a.StringValue(), b.StringValue())
	case bsontype.ObjectID:
		ao, bo := a.ObjectID(), b.ObjectID()
		return bytes.Compare(ao[:], bo[:])
	case bsontype.DateTime:
		return int(sign(a.DateTime() - b.DateTime()))
	case bsontype.Boolean:
		ab, bb := a.Boolean(), b.Boolean()
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		}
		return 1
	}
	return bytes.Compare(a.Value, b.Value)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sign(n int64) int64 {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// sortByKey sorts docs ascending on key, stable so that ties keep their
// incoming (insertion) order. Documents missing the key sort first.
func sortByKey(docs []bson.Raw, key string) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, aErr := docs[i].LookupErr(key)
		b, bErr := docs[j].LookupErr(key)
		switch {
		case aErr != nil && bErr != nil:
			return false
		case aErr != nil:
			return true
		case bErr != nil:
			return false
		}
		return compareValues(a, b) < 0
	})
}

// docKey renders a document _id as the string stored in the doc_id column.
func docKey(v bson.RawValue) (string, error) {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex(), nil
	}
	if s, ok := v.StringValueOK(); ok {
		return s, nil
	}
	return "", fmt.Errorf("docstore: unsupported _id type %s", v.Type)
}

// withID marshals doc and makes sure it carries an _id, generating an
// ObjectID when the caller left it empty.
func withID(doc any) (bson.Raw, string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: marshal: %w", err)
	}
	if id, err := bson.Raw(raw).LookupErr("_id"); err == nil {
		key, err := docKey(id)
		if err != nil {
			return nil, "", err
		}
		return raw, key, nil
	}

	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, "", fmt.Errorf("docstore: unmarshal: %w", err)
	}
	oid := primitive.NewObjectID()
	d = append(bson.D{{Key: "_id", Value: oid}}, d...)
	raw, err = bson.Marshal(d)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: marshal: %w", err)
	}
	return raw, oid.Hex(), nil
}

// applySet returns doc with every field of set overwritten or appended.
func applySet(doc bson.Raw, set Fields) (bson.Raw, error) {
	var d bson.D
	if err := bson.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("docstore: unmarshal: %w", err)
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		replaced := false
		for i := range d {
			if d[i].Key == k {
				d[i].Value = set[k]
				replaced = true
				break
			}
		}
		if !replaced {
			d = append(d, bson.E{Key: k, Value: set[k]})
		}
	}
	out, err := bson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal: %w", err)
	}
	return out, nil
}
