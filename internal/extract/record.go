package extract

// Record is the ordered set of fields extracted from one element.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a Record from alternating name, value pairs.
func NewRecord(pairs ...string) Record {
	record := Record{values: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		record.set(pairs[i], pairs[i+1])
	}
	return record
}

func (r *Record) set(name, value string) {
	if _, exists := r.values[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Get returns the value of name, or "" if it was never extracted.
func (r Record) Get(name string) string {
	return r.values[name]
}

// Lookup is Get but also reports whether the field exists.
func (r Record) Lookup(name string) (string, bool) {
	value, ok := r.values[name]
	return value, ok
}

// Keys returns the field names in rule order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Map returns a copy of the fields.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r Record) Id() string {
	return r.values["id"]
}

func (r Record) Name() string {
	return r.values["name"]
}

func (r Record) Link() string {
	return r.values[LinkField]
}
