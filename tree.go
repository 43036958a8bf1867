/*
 *  tree.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/02/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// Entry is one distinct profile (or profile pair) and how often it was seen
type Entry struct {
	Key   Key
	Count int
	A     Profile // the profile, or the left side of a pair
	B     Profile // right side of a pair
	ID    int     // insertion ordinal, the profile id for single sites
}

// IsPair tells if the entry holds two profiles
func (r *Entry) IsPair() bool {
	return r.Key.IsPair()
}

// String prints the counts followed by the number of observations
func (r *Entry) String() string {
	if r.IsPair() {
		return fmt.Sprintf("%s\t%s\t%d", r.A, r.B, r.Count)
	}
	return fmt.Sprintf("%s\t%d", r.A, r.Count)
}

// ProfileTree collapses repeated observations into distinct entries. Insertion
// is a hash lookup, traversal is in key order.
type ProfileTree struct {
	Distance int
	entries  map[Key]*Entry
	sorted   []*Entry
	total    int
	maxCov   int
}

// NewProfileTree makes an empty tree for the given distance, 0 for single sites
func NewProfileTree(distance int) *ProfileTree {
	return &ProfileTree{
		Distance: distance,
		entries:  make(map[Key]*Entry),
	}
}

// Add records one observation of a single-site profile
func (t *ProfileTree) Add(p Profile) *Entry {
	return t.AddCount(p, 1)
}

// AddCount records n observations of a single-site profile
func (t *ProfileTree) AddCount(p Profile, n int) *Entry {
	e, created := t.insert(ProfileKey(p), n)
	if created {
		e.A = p
		e.ID = len(t.entries) - 1
		t.maxCov = max(t.maxCov, p.Coverage())
	}
	return e
}

// AddPair records one observation of a profile pair
func (t *ProfileTree) AddPair(r Pair) *Entry {
	e, created := t.insert(PairKey(r.Left.Profile, r.Right.Profile), 1)
	if created {
		e.A, e.B = r.Left.Profile, r.Right.Profile
		e.ID = len(t.entries) - 1
		t.maxCov = max(t.maxCov, max(e.A.Coverage(), e.B.Coverage()))
	}
	return e
}

// insert is the insert-or-increment primitive
func (t *ProfileTree) insert(k Key, n int) (*Entry, bool) {
	t.total += n
	if e, ok := t.entries[k]; ok {
		e.Count += n
		return e, false
	}
	e := &Entry{Key: k, Count: n}
	t.entries[k] = e
	t.sorted = nil
	return e, true
}

// Len is the number of distinct keys
func (t *ProfileTree) Len() int {
	return len(t.entries)
}

// Total is the number of observations added
func (t *ProfileTree) Total() int {
	return t.total
}

// MaxCoverage is the largest coverage on either side of any entry
func (t *ProfileTree) MaxCoverage() int {
	return t.maxCov
}

// Entries returns all entries in key order
func (t *ProfileTree) Entries() []*Entry {
	if t.sorted == nil {
		t.sorted = make([]*Entry, 0, len(t.entries))
		for _, e := range t.entries {
			t.sorted = append(t.sorted, e)
		}
		sort.Slice(t.sorted, func(i, j int) bool {
			return t.sorted[i].Key < t.sorted[j].Key
		})
	}
	return t.sorted
}

// Walk visits the entries in key order
func (t *ProfileTree) Walk(fn func(e *Entry)) {
	for _, e := range t.Entries() {
		fn(e)
	}
}

// Profiles lists the single-site profiles by entry ID
func (t *ProfileTree) Profiles() []Profile {
	profiles := make([]Profile, len(t.entries))
	for _, e := range t.entries {
		profiles[e.ID] = e.A
	}
	return profiles
}

// Frequencies estimates the nucleotide frequencies from all reads in the tree
func (t *ProfileTree) Frequencies() Frequencies {
	var f Frequencies
	var total float64
	t.Walk(func(e *Entry) {
		sides := []Profile{e.A}
		if e.IsPair() {
			sides = append(sides, e.B)
		}
		for _, p := range sides {
			for i, c := range p {
				f[i] += float64(e.Count * c)
				total += float64(e.Count * c)
			}
		}
	})
	if total > 0 {
		for i := range f {
			f[i] /= total
		}
	}
	return f
}

// Print writes one line per entry in key order
func (t *ProfileTree) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range t.Entries() {
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", t.Distance, e); err != nil {
			return err
		}
	}
	return bw.Flush()
}
