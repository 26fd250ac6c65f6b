package services

import (
	"cmp"
	"math"
	"slices"
)

// meanAcc accumulates a mean over the values that were actually observed.
type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v float64) {
	m.sum += v
	m.n++
}

func (m *meanAcc) addOpt(v float64, ok bool) {
	if ok {
		m.add(v)
	}
}

// value is 0 when nothing was observed.
func (m meanAcc) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// ptr is nil when nothing was observed.
func (m meanAcc) ptr() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func pct(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// sampleStdDev uses n-1 in the denominator; it is undefined below two values.
func sampleStdDev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1)), true
}

// set counts distinct strings.
type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

// sortedKeys returns map keys in ascending order.
func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// head returns at most n leading elements.
func head[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// tail returns at most n trailing elements.
func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func ptrOf(v float64) *float64 { return &v }
