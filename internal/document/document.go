package document

// Document is the generic unit of storage: a field -> value mapping whose
// values are primitives, embedded documents (plain nested maps, no identity
// of their own) or reference identifiers. The representation is kept
// bson-compatible so documents round-trip through MongoDB unchanged.
type Document map[string]any

// FieldID is the reserved identifier field. It is assigned at creation and
// immutable afterwards.
const FieldID = "_id"

// ID returns the document identifier, or "" when the document has none yet.
func (d Document) ID() string {
	v, ok := d[FieldID].(string)
	if !ok {
		return ""
	}
	return v
}

// Ref is a typed pointer to a document in another collection. Stored
// documents hold only the raw identifier; the target collection comes from
// the catalog declaration of the field. Refs are materialized during
// resolution and inside markers.
type Ref struct {
	Collection string `json:"collection" bson:"collection"`
	ID         string `json:"id" bson:"id"`
}

// Clone returns a deep copy of the document. Nested maps and slices are
// copied recursively so mutating the clone never touches the original.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return Document(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		// primitives (and time.Time etc.) are value types
		return v
	}
}
