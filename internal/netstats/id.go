package netstats

import (
	"cmp"
	"fmt"
)

// MetricID identifies a metric by the registry index of its enum type and the enum value.
// Two ids are equal iff they reference the same enum type and value.
type MetricID struct {
	TypeIndex int32
	EnumValue int32
}

// String renders the id as "typeIndex:enumValue".
func (id MetricID) String() string {
	return fmt.Sprintf("%d:%d", id.TypeIndex, id.EnumValue)
}

// Compare orders ids by type index, then enum value.
func (id MetricID) Compare(other MetricID) int {
	if c := cmp.Compare(id.TypeIndex, other.TypeIndex); c != 0 {
		return c
	}
	return cmp.Compare(id.EnumValue, other.EnumValue)
}
