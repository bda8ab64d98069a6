package netstats

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MetricKind describes how a metric's samples combine over an interval.
type MetricKind uint8

const (
	// KindCounter values are summed when accumulated.
	KindCounter MetricKind = iota
	// KindGauge values overwrite the previous sample.
	KindGauge
)

// String returns the lower-case kind name.
func (k MetricKind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Metadata is the display information attached to one enum value.
type Metadata struct {
	Name                string
	DisplayName         string
	Units               BaseUnits
	Kind                MetricKind
	DisplayAsPercentage bool
}

type enumType struct {
	name   string
	values map[int32]Metadata
	byName map[string]int32
}

// Registry maps enum type indexes to their names and per-value metadata.
// It is append-only: a type keeps its index for the registry's lifetime.
type Registry struct {
	mu     sync.RWMutex
	types  []*enumType
	byName map[string]int32
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int32)}
}

// Register adds an enum type and returns its index. Registering a name that already
// exists returns the existing index and leaves its metadata untouched.
func (r *Registry) Register(typeName string, values map[int32]Metadata) (int32, error) {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return 0, fmt.Errorf("register metric type: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.byName[typeName]; ok {
		return idx, nil
	}

	et := &enumType{
		name:   typeName,
		values: make(map[int32]Metadata, len(values)),
		byName: make(map[string]int32, len(values)),
	}
	for v, md := range values {
		if md.Name == "" {
			md.Name = fmt.Sprintf("%s%d", typeName, v)
		}
		if md.DisplayName == "" {
			md.DisplayName = md.Name
		}
		et.values[v] = md
		et.byName[md.Name] = v
	}

	idx := int32(len(r.types))
	r.types = append(r.types, et)
	r.byName[typeName] = idx
	return idx, nil
}

// Metadata returns the metadata of id.
func (r *Registry) Metadata(id MetricID) (Metadata, bool) {
	et := r.typeAt(id.TypeIndex)
	if et == nil {
		return Metadata{}, false
	}
	md, ok := et.values[id.EnumValue]
	return md, ok
}

// TypeName returns the enum type name registered at typeIndex.
func (r *Registry) TypeName(typeIndex int32) (string, bool) {
	et := r.typeAt(typeIndex)
	if et == nil {
		return "", false
	}
	return et.name, true
}

// Name renders id as "Type.Value", falling back to the numeric form for unknown ids.
func (r *Registry) Name(id MetricID) string {
	et := r.typeAt(id.TypeIndex)
	if et == nil {
		return id.String()
	}
	md, ok := et.values[id.EnumValue]
	if !ok {
		return id.String()
	}
	return et.name + "." + md.Name
}

// Lookup resolves a "Type.Value" name produced by Name.
func (r *Registry) Lookup(name string) (MetricID, error) {
	typeName, valueName, ok := strings.Cut(strings.TrimSpace(name), ".")
	if !ok {
		return MetricID{}, fmt.Errorf("%w: %q", ErrUnknownMetricID, name)
	}

	r.mu.RLock()
	idx, found := r.byName[typeName]
	r.mu.RUnlock()
	if !found {
		return MetricID{}, fmt.Errorf("%w: %q", ErrUnregisteredType, typeName)
	}

	v, found := r.typeAt(idx).byName[valueName]
	if !found {
		return MetricID{}, fmt.Errorf("%w: %q", ErrUnknownMetricID, name)
	}
	return MetricID{TypeIndex: idx, EnumValue: v}, nil
}

// IDs lists every registered id ordered by type index and enum value.
func (r *Registry) IDs() []MetricID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []MetricID
	for i, et := range r.types {
		for v := range et.values {
			out = append(out, MetricID{TypeIndex: int32(i), EnumValue: v})
		}
	}
	slices.SortFunc(out, MetricID.Compare)
	return out
}

func (r *Registry) typeAt(idx int32) *enumType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || int(idx) >= len(r.types) {
		return nil
	}
	return r.types[idx]
}

// Enum binds a Go enum type to its registry index.
type Enum[E ~int32] struct {
	typeIndex int32
}

// RegisterEnum registers the values of E under typeName.
func RegisterEnum[E ~int32](r *Registry, typeName string, values map[E]Metadata) (Enum[E], error) {
	raw := make(map[int32]Metadata, len(values))
	for v, md := range values {
		raw[int32(v)] = md
	}
	idx, err := r.Register(typeName, raw)
	if err != nil {
		return Enum[E]{}, err
	}
	return Enum[E]{typeIndex: idx}, nil
}

// ID returns the MetricID of v.
func (e Enum[E]) ID(v E) MetricID {
	return MetricID{TypeIndex: e.typeIndex, EnumValue: int32(v)}
}

// TypeIndex returns the registry index of E.
func (e Enum[E]) TypeIndex() int32 {
	return e.typeIndex
}
