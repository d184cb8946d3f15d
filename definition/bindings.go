package definition

import (
	"encoding/json"
	"maps"
	"sort"
	"sync"
)

// Bindings is the data carried by machines compiled from a definition: a
// string-keyed bag of values read by guard expressions and written by
// actions.
type Bindings struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewBindings creates empty bindings.
func NewBindings() *Bindings {
	return &Bindings{values: make(map[string]any)}
}

// BindingsFrom creates bindings holding a copy of values.
func BindingsFrom(values map[string]any) *Bindings {
	b := NewBindings()
	maps.Copy(b.values, values)

	return b
}

// Get retrieves a value.
func (b *Bindings) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	val, ok := b.values[key]

	return val, ok
}

// Set stores a value.
func (b *Bindings) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[key] = value
}

// Delete removes a value.
func (b *Bindings) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.values, key)
}

// Merge stores every value of values.
func (b *Bindings) Merge(values map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	maps.Copy(b.values, values)
}

// Values returns a shallow copy of the bindings.
func (b *Bindings) Values() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return maps.Clone(b.values)
}

// Keys returns the binding names in sorted order.
func (b *Bindings) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Len returns the number of bindings.
func (b *Bindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.values)
}

func (b *Bindings) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Values())
}

func (b *Bindings) UnmarshalJSON(data []byte) error {
	values := make(map[string]any)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.values = values

	return nil
}

// number converts numeric binding values to float64, reporting whether the
// value was an integer.
func number(v any) (float64, bool, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int32:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case uint:
		return float64(n), true, true
	case uint64:
		return float64(n), true, true
	case float32:
		return float64(n), false, true
	case float64:
		return n, n == float64(int64(n)), true
	default:
		return 0, false, false
	}
}
