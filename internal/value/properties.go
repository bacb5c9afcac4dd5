package value

// EncodeProperties serializes a property map the same way any Object
// value encodes.
func EncodeProperties(props map[string]Value) []byte {
	return Encode(Object(props))
}

// DecodeProperties is the inverse of EncodeProperties.
func DecodeProperties(b []byte) (map[string]Value, error) {
	v, _, err := Decode(b)
	if err != nil {
		return nil, err
	}
	obj, _ := v.AsObject()
	if obj == nil {
		obj = map[string]Value{}
	}
	return obj, nil
}

// CloneProperties returns a shallow-independent copy of a property map, used when
// merging partial updates so the caller's map isn't mutated in place.
func CloneProperties(props map[string]Value) map[string]Value {
	out := make(map[string]Value, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// MergeProperties overlays patch onto base, returning a new map; base is
// not mutated.
func MergeProperties(base, patch map[string]Value) map[string]Value {
	out := CloneProperties(base)
	for k, v := range patch {
		out[k] = v
	}
	return out
}
