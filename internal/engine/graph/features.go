// # internal/engine/graph/features.go
package graph

import (
	"math"
	"sort"
)

// Feature is one named value on a node or edge: a scalar or a fixed-length
// vector.
type Feature struct {
	Values []float64
	Vector bool
}

// Width is 0 for scalars and the vector length otherwise.
func (f Feature) Width() int {
	if !f.Vector {
		return 0
	}
	return len(f.Values)
}

// FeatureMap holds the features of a single node or edge.
type FeatureMap map[string]Feature

func (m FeatureMap) SetScalar(name string, v float64) {
	m[name] = Feature{Values: []float64{v}}
}

// SetVector stores a copy of v.
func (m FeatureMap) SetVector(name string, v []float64) {
	m[name] = Feature{Values: append([]float64(nil), v...), Vector: true}
}

func (m FeatureMap) Scalar(name string) (float64, bool) {
	f, ok := m[name]
	if !ok || f.Vector || len(f.Values) != 1 {
		return 0, false
	}
	return f.Values[0], true
}

func (m FeatureMap) Vector(name string) ([]float64, bool) {
	f, ok := m[name]
	if !ok || !f.Vector {
		return nil, false
	}
	return f.Values, true
}

// Names returns feature names in sorted order.
func (m FeatureMap) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m FeatureMap) hasNaN() (string, bool) {
	for name, f := range m {
		for _, v := range f.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return name, true
			}
		}
	}
	return "", false
}
