package docstore

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// IDField is the document field every document must carry.
const IDField = "_id"

// Document is a schemaless record stored in a collection. The only field the
// adapter constrains is "_id", a non-empty string; everything else belongs to
// the caller.
type Document map[string]any

// ID returns the document id, or the empty string when absent or not a string.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a deep copy of the document. Nested maps and slices are
// copied; other values are shared.
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
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Document:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// Decode populates out (a struct pointer) from the document fields, honoring
// json tags.
func (d Document) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to build document decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(d)); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// FromStruct converts a struct into a Document, honoring json tags.
func FromStruct(v any) (Document, error) {
	var out map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build document encoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("failed to convert struct to document: %w", err)
	}
	return Document(out), nil
}

// ResultMap is the return shape of every multi-document read: document bodies
// keyed by their "_id".
type ResultMap map[string]Document

// IDs returns the document ids in ascending order.
func (m ResultMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
