package types

import (
	"maps"
	"slices"

	"github.com/spacemeshos/go-scale"
)

const attributeLimit = 4096

// Attribute is a single named attribute of an entity.
type Attribute struct {
	Name  string
	Value string
}

// AttributesFromMap converts attributes into a slice sorted by name.
func AttributesFromMap(m map[string]string) []Attribute {
	attrs := make([]Attribute, 0, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		attrs = append(attrs, Attribute{Name: name, Value: m[name]})
	}
	return attrs
}

// AttributesToMap converts attributes back into a map.
func AttributesToMap(attrs []Attribute) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name] = a.Value
	}
	return m
}

// EncodeScale implements scale codec interface.
func (a *Attribute) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, []byte(a.Name), attributeLimit)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, []byte(a.Value), attributeLimit)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (a *Attribute) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, attributeLimit)
		if err != nil {
			return total, err
		}
		total += n
		a.Name = string(field)
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, attributeLimit)
		if err != nil {
			return total, err
		}
		total += n
		a.Value = string(field)
	}
	return total, nil
}
