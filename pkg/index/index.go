// Package index provides the axis label structures the storage manager
// hangs its rows and columns on. An Index maps positions to labels and,
// when labels are unique, labels back to positions.
package index

import (
	"strconv"

	"github.com/ajitpratap0/tabular/pkg/errors"
)

// Index is an immutable ordered collection of string labels for one axis.
// Mutating operations return a new Index.
type Index interface {
	Len() int
	Label(i int) string
	Labels() []string
	// GetLoc resolves a label to its position. Duplicate labels resolve
	// to the first occurrence.
	GetLoc(label string) (int, error)
	// GetIndexer maps target labels onto positions in the receiver, with
	// -1 for labels the receiver does not carry. It fails on a receiver
	// with duplicate labels since the mapping would be ambiguous.
	GetIndexer(target []string) ([]int, error)
	Insert(pos int, label string) (Index, error)
	// Append adds a label at the end; equivalent to Insert at Len().
	Append(label string) (Index, error)
	Delete(pos int) (Index, error)
	Take(positions []int) (Index, error)
	HasDuplicates() bool
}

// LabelIndex is the general Index over explicit labels.
type LabelIndex struct {
	labels []string
	// first maps each label to its first position; len(first) < len(labels)
	// means duplicates exist.
	first map[string]int
}

// NewLabelIndex builds an index over a copy of labels.
func NewLabelIndex(labels []string) *LabelIndex {
	ix := &LabelIndex{
		labels: append([]string(nil), labels...),
		first:  make(map[string]int, len(labels)),
	}
	for i, l := range ix.labels {
		if _, ok := ix.first[l]; !ok {
			ix.first[l] = i
		}
	}
	return ix
}

func (ix *LabelIndex) Len() int          { return len(ix.labels) }
func (ix *LabelIndex) Label(i int) string { return ix.labels[i] }

func (ix *LabelIndex) Labels() []string {
	return append([]string(nil), ix.labels...)
}

func (ix *LabelIndex) HasDuplicates() bool {
	return len(ix.first) < len(ix.labels)
}

func (ix *LabelIndex) GetLoc(label string) (int, error) {
	pos, ok := ix.first[label]
	if !ok {
		return -1, errors.MissingLabel(label)
	}
	return pos, nil
}

func (ix *LabelIndex) GetIndexer(target []string) ([]int, error) {
	if ix.HasDuplicates() {
		return nil, errors.AmbiguousReindex()
	}
	out := make([]int, len(target))
	for i, l := range target {
		pos, ok := ix.first[l]
		if !ok {
			pos = -1
		}
		out[i] = pos
	}
	return out, nil
}

func (ix *LabelIndex) Insert(pos int, label string) (Index, error) {
	if pos < 0 || pos > len(ix.labels) {
		return nil, errors.OutOfRange(pos, len(ix.labels)+1)
	}
	out := make([]string, 0, len(ix.labels)+1)
	out = append(out, ix.labels[:pos]...)
	out = append(out, label)
	out = append(out, ix.labels[pos:]...)
	return NewLabelIndex(out), nil
}

func (ix *LabelIndex) Append(label string) (Index, error) {
	return ix.Insert(len(ix.labels), label)
}

func (ix *LabelIndex) Delete(pos int) (Index, error) {
	if pos < 0 || pos >= len(ix.labels) {
		return nil, errors.OutOfRange(pos, len(ix.labels))
	}
	out := make([]string, 0, len(ix.labels)-1)
	out = append(out, ix.labels[:pos]...)
	out = append(out, ix.labels[pos+1:]...)
	return NewLabelIndex(out), nil
}

func (ix *LabelIndex) Take(positions []int) (Index, error) {
	out := make([]string, len(positions))
	for i, p := range positions {
		if p < 0 || p >= len(ix.labels) {
			return nil, errors.OutOfRange(p, len(ix.labels))
		}
		out[i] = ix.labels[p]
	}
	return NewLabelIndex(out), nil
}

// RangeIndex is the default positional index 0..n-1. Labels materialize
// lazily as decimal strings; any structural edit falls back to a
// LabelIndex.
type RangeIndex struct {
	n int
}

// NewRangeIndex builds a positional index of length n.
func NewRangeIndex(n int) *RangeIndex { return &RangeIndex{n: n} }

func (ix *RangeIndex) Len() int           { return ix.n }
func (ix *RangeIndex) Label(i int) string { return strconv.Itoa(i) }
func (ix *RangeIndex) HasDuplicates() bool { return false }

func (ix *RangeIndex) Labels() []string {
	out := make([]string, ix.n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func (ix *RangeIndex) GetLoc(label string) (int, error) {
	pos, err := strconv.Atoi(label)
	if err != nil || pos < 0 || pos >= ix.n {
		return -1, errors.MissingLabel(label)
	}
	return pos, nil
}

func (ix *RangeIndex) GetIndexer(target []string) ([]int, error) {
	out := make([]int, len(target))
	for i, l := range target {
		pos, err := strconv.Atoi(l)
		if err != nil || pos < 0 || pos >= ix.n {
			pos = -1
		}
		out[i] = pos
	}
	return out, nil
}

func (ix *RangeIndex) Insert(pos int, label string) (Index, error) {
	return NewLabelIndex(ix.Labels()).Insert(pos, label)
}

func (ix *RangeIndex) Append(label string) (Index, error) {
	return ix.Insert(ix.n, label)
}

func (ix *RangeIndex) Delete(pos int) (Index, error) {
	return NewLabelIndex(ix.Labels()).Delete(pos)
}

func (ix *RangeIndex) Take(positions []int) (Index, error) {
	out := make([]string, len(positions))
	for i, p := range positions {
		if p < 0 || p >= ix.n {
			return nil, errors.OutOfRange(p, ix.n)
		}
		out[i] = strconv.Itoa(p)
	}
	return NewLabelIndex(out), nil
}
