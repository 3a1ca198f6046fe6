package core

// PropertyMap is an ordered mapping from UTF-8 property name to UTF-8
// value. Keys are unique: a second Set on an existing key replaces the
// value in place without moving it to the end of iteration order.
//
// Lives in internal/core (rather than the root gowsi package) so that
// vendor decoders can populate one without importing the root package
// — gowsi.PropertyMap is a type alias onto this.
type PropertyMap struct {
	keys   []string
	values map[string]string
}

// NewPropertyMap returns an empty PropertyMap.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{values: make(map[string]string)}
}

// Set inserts or replaces the value for name.
func (p *PropertyMap) Set(name, value string) {
	if _, ok := p.values[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.values[name] = value
}

// Get returns the value for name and whether it was present.
func (p *PropertyMap) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Delete removes name from the map, if present.
func (p *PropertyMap) Delete(name string) {
	if _, ok := p.values[name]; !ok {
		return
	}
	delete(p.values, name)
	for i, k := range p.keys {
		if k == name {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns property names in insertion order.
func (p *PropertyMap) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of properties.
func (p *PropertyMap) Len() int { return len(p.keys) }
