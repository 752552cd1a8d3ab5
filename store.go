// File: confkit/store.go
package confkit

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// item holds the default, the per-origin values, and the computed
// current value for one configuration key.
type item struct {
	defaultValue any
	currentValue any
	values       map[Origin]any
}

// Store is a layered configuration provider. It merges registered
// defaults with values loaded from a file, the environment, and
// command-line arguments according to the configured origin precedence.
type Store struct {
	items   map[string]item
	mutex   sync.RWMutex
	options LoadOptions

	filePath   string
	fileFormat string

	// Per-origin caches from the most recent load, kept for SaveOrigin
	// and diagnostics.
	fileData map[string]any
	envData  map[string]any
	cliData  map[string]any

	watcher *watcher
}

// New creates a Store with the default load options.
func New() *Store {
	return NewWithOptions(DefaultLoadOptions())
}

// NewWithOptions creates a Store with custom load options.
func NewWithOptions(opts LoadOptions) *Store {
	if len(opts.Origins) == 0 {
		opts.Origins = DefaultLoadOptions().Origins
	}
	return &Store{
		items:    make(map[string]item),
		options:  opts,
		fileData: make(map[string]any),
		envData:  make(map[string]any),
		cliData:  make(map[string]any),
	}
}

// Register makes a configuration key known to the store.
// The key is colon-separated (e.g. "Server:Port", "Debug") and each
// segment must be a valid bare key. defaultValue is the value returned
// by Get until an origin provides one; it may be nil for keys that have
// no sensible default.
func (s *Store) Register(key string, defaultValue any) error {
	if key == "" {
		return fmt.Errorf("%w: registration key cannot be empty", ErrInvalidKey)
	}

	segments := strings.Split(key, Separator)
	for _, segment := range segments {
		if !isValidKeySegment(segment) {
			return fmt.Errorf("%w: invalid segment %q in key %q", ErrInvalidKey, segment, key)
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.items[key] = item{
		defaultValue: defaultValue,
		currentValue: defaultValue,
	}

	return nil
}

// Unregister removes a configuration key and all its children.
func (s *Store) Unregister(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prefix := key + Separator

	if _, exists := s.items[key]; !exists {
		hasChildren := false
		for child := range s.items {
			if strings.HasPrefix(child, prefix) {
				hasChildren = true
				break
			}
		}
		if !hasChildren {
			return fmt.Errorf("%w: %s", ErrNotRegistered, key)
		}
	}

	delete(s.items, key)
	for child := range s.items {
		if strings.HasPrefix(child, prefix) {
			delete(s.items, child)
		}
	}

	return nil
}

// RegisterStruct registers configuration defaults derived from a struct,
// using `toml` tags to determine key names. The prefix is prepended to
// all keys (e.g. "Log"); an empty prefix is allowed. Nested structs
// produce nested keys joined with the separator.
func (s *Store) RegisterStruct(prefix string, structWithDefaults any) error {
	v := reflect.ValueOf(structWithDefaults)

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("RegisterStruct requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("RegisterStruct requires a struct or struct pointer, got %T", structWithDefaults)
	}

	var errs []string
	s.registerFields(v, prefix, &errs)

	if len(errs) > 0 {
		return fmt.Errorf("failed to register %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}

// registerFields walks struct fields recursively and registers each leaf.
func (s *Store) registerFields(v reflect.Value, prefix string, errs *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("toml")
		if tag == "-" {
			continue
		}

		name := field.Name
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		key := name
		if prefix != "" {
			key = strings.TrimSuffix(prefix, Separator) + Separator + name
		}

		fieldType := fieldValue.Type()
		isStruct := fieldValue.Kind() == reflect.Struct
		isPtrToStruct := fieldValue.Kind() == reflect.Ptr && fieldType.Elem().Kind() == reflect.Struct

		if isStruct || isPtrToStruct {
			nested := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					// Nil pointers carry no well-defined defaults.
					continue
				}
				nested = fieldValue.Elem()
			}
			s.registerFields(nested, key, errs)
			continue
		}

		if err := s.Register(key, fieldValue.Interface()); err != nil {
			*errs = append(*errs, fmt.Sprintf("field %s (key %s): %v", field.Name, key, err))
		}
	}
}

// Paths returns all registered keys with the specified prefix.
func (s *Store) Paths(prefix string) map[string]bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[string]bool)
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			result[key] = true
		}
	}

	return result
}

// Get retrieves the current merged value for a key.
// The second return reports whether the key is known to the store.
func (s *Store) Get(key string) (any, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	it, registered := s.items[key]
	if !registered {
		return nil, false
	}

	return it.currentValue, true
}

// Set explicitly overrides the current value for a registered key.
// The override does not belong to any origin and survives until the
// next load or reset recomputes the key.
func (s *Store) Set(key string, value any) error {
	if err := checkValueSize(value); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	it, registered := s.items[key]
	if !registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}

	it.currentValue = value
	s.items[key] = it
	return nil
}

// SetOrigin records a value for a key under a specific origin and
// recomputes the current value according to precedence.
func (s *Store) SetOrigin(origin Origin, key string, value any) error {
	if err := checkValueSize(value); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	it, registered := s.items[key]
	if !registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}

	if it.values == nil {
		it.values = make(map[Origin]any)
	}
	it.values[origin] = value
	it.currentValue = s.computeValue(it)
	s.items[key] = it
	return nil
}

// GetOrigin retrieves the value a specific origin holds for a key.
func (s *Store) GetOrigin(key string, origin Origin) (any, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	it, registered := s.items[key]
	if !registered {
		return nil, false
	}

	val, exists := it.values[origin]
	return val, exists
}

// Origins returns every origin-held value for a key.
func (s *Store) Origins(key string) map[Origin]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[Origin]any)
	if it, registered := s.items[key]; registered {
		for origin, val := range it.values {
			result[origin] = val
		}
	}

	return result
}

// ResetOrigin discards all values held by one origin and recomputes
// every key.
func (s *Store) ResetOrigin(origin Origin) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, it := range s.items {
		if _, exists := it.values[origin]; exists {
			delete(it.values, origin)
			it.currentValue = s.computeValue(it)
			s.items[key] = it
		}
	}

	switch origin {
	case OriginFile:
		s.fileData = make(map[string]any)
	case OriginEnv:
		s.envData = make(map[string]any)
	case OriginCLI:
		s.cliData = make(map[string]any)
	}
}

// Reset discards all origin values, reverting every key to its default.
func (s *Store) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, it := range s.items {
		it.values = nil
		it.currentValue = it.defaultValue
		s.items[key] = it
	}

	s.fileData = make(map[string]any)
	s.envData = make(map[string]any)
	s.cliData = make(map[string]any)
}

// SetLoadOptions replaces the load options and recomputes every key
// under the new precedence.
func (s *Store) SetLoadOptions(opts LoadOptions) error {
	if len(opts.Origins) == 0 {
		return fmt.Errorf("load options must name at least one origin")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.options = opts
	for key, it := range s.items {
		it.currentValue = s.computeValue(it)
		s.items[key] = it
	}

	return nil
}

// computeValue resolves the effective value of an item by walking the
// configured origins in precedence order. Callers must hold the mutex.
func (s *Store) computeValue(it item) any {
	for _, origin := range s.options.Origins {
		if origin == OriginDefault {
			return it.defaultValue
		}
		if val, exists := it.values[origin]; exists {
			return val
		}
	}
	return it.defaultValue
}

// snapshot copies the current values of all keys.
func (s *Store) snapshot() map[string]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snap := make(map[string]any, len(s.items))
	for key, it := range s.items {
		snap[key] = it.currentValue
	}
	return snap
}

// Raw implements Source. It returns the string form of the value under
// key, or false when the key is absent or unset.
func (s *Store) Raw(key string) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	it, registered := s.items[key]
	if !registered || it.currentValue == nil {
		return "", false
	}

	return formatValue(it.currentValue), true
}

// Value implements Source. For leaf keys it returns the stored value;
// for section keys it returns the nested map of the subtree so struct
// targets can bind directly.
func (s *Store) Value(key string) (any, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if it, registered := s.items[key]; registered && it.currentValue != nil {
		return it.currentValue, true
	}

	prefix := key + Separator
	node := make(map[string]any)
	found := false
	for child, it := range s.items {
		if strings.HasPrefix(child, prefix) && it.currentValue != nil {
			setNestedValue(node, strings.TrimPrefix(child, prefix), it.currentValue)
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return node, true
}

// Has implements Source. A key exists when it is registered as a leaf
// or when any registered key lives under it as a section.
func (s *Store) Has(key string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if _, registered := s.items[key]; registered {
		return true
	}

	prefix := key + Separator
	for child := range s.items {
		if strings.HasPrefix(child, prefix) {
			return true
		}
	}
	return false
}

// All implements Source. It returns the flattened effective snapshot,
// ordinally sorted by key. Leaf keys whose value is unset and section
// keys carry Defined == false.
func (s *Store) All() []Entry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sections := make(map[string]bool)
	entries := make([]Entry, 0, len(s.items))

	for key, it := range s.items {
		e := Entry{Key: key}
		if it.currentValue != nil {
			e.Value = formatValue(it.currentValue)
			e.Defined = true
		}
		entries = append(entries, e)

		segments := strings.Split(key, Separator)
		prefix := ""
		for _, segment := range segments[:len(segments)-1] {
			if prefix == "" {
				prefix = segment
			} else {
				prefix += Separator + segment
			}
			sections[prefix] = true
		}
	}

	for section := range sections {
		if _, isLeaf := s.items[section]; !isLeaf {
			entries = append(entries, Entry{Key: section})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return entries
}

// formatValue renders a stored value as a string for raw access and
// snapshot enumeration.
func formatValue(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}

	return fmt.Sprintf("%v", val)
}

// checkValueSize enforces MaxValueSize for string values.
func checkValueSize(value any) error {
	if str, ok := value.(string); ok && len(str) > MaxValueSize {
		return ErrValueSize
	}
	return nil
}
