// elPrep: a high-performance tool for preparing SAM/BAM files.
// Copyright (c) 2017, 2018 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package recal

import (
	"sort"

	psort "github.com/exascience/pargo/sort"
)

// A Table accumulates observations and mismatches per covariate key.
// Besides the full table, it maintains collapsed tables that are
// updated with every increment: per read group, per read group and
// quality, and per read group, quality and single optional covariate.
//
// A Table is not safe for concurrent use; every worker owns its own
// Table, and partial tables are combined with Merge.
type Table struct {
	// Covariates names the optional covariates, in key order.
	Covariates []string

	Full        map[Key]*RecalDatum
	ByReadGroup map[string]*RecalDatum
	ByQuality   map[QualKey]*RecalDatum
	// ByCovariate has one table per optional covariate.
	ByCovariate []map[CovariateKey]*RecalDatum
}

// NewTable returns an empty table for the given optional covariates.
func NewTable(covariates []string) *Table {
	table := &Table{
		Covariates:  append([]string(nil), covariates...),
		Full:        make(map[Key]*RecalDatum),
		ByReadGroup: make(map[string]*RecalDatum),
		ByQuality:   make(map[QualKey]*RecalDatum),
		ByCovariate: make([]map[CovariateKey]*RecalDatum, len(covariates)),
	}
	for i := range table.ByCovariate {
		table.ByCovariate[i] = make(map[CovariateKey]*RecalDatum)
	}
	return table
}

// initMaps allocates the maps that a gob decoder leaves nil.
func (table *Table) initMaps() {
	if table.Full == nil {
		table.Full = make(map[Key]*RecalDatum)
	}
	if table.ByReadGroup == nil {
		table.ByReadGroup = make(map[string]*RecalDatum)
	}
	if table.ByQuality == nil {
		table.ByQuality = make(map[QualKey]*RecalDatum)
	}
	if len(table.ByCovariate) < len(table.Covariates) {
		table.ByCovariate = append(table.ByCovariate, make([]map[CovariateKey]*RecalDatum, len(table.Covariates)-len(table.ByCovariate))...)
	}
	for i, collapsed := range table.ByCovariate {
		if collapsed == nil {
			table.ByCovariate[i] = make(map[CovariateKey]*RecalDatum)
		}
	}
}

func canonicalBase(base byte) (byte, bool) {
	switch base {
	case 'A', 'a':
		return 'A', true
	case 'C', 'c':
		return 'C', true
	case 'G', 'g':
		return 'G', true
	case 'T', 't':
		return 'T', true
	default:
		return 0, false
	}
}

// Increment counts one observation of base against refBase at key,
// and returns true. When either base is not A, C, G, or T, nothing is
// counted and Increment returns false.
func (table *Table) Increment(key Key, base, refBase byte) bool {
	b, ok := canonicalBase(base)
	if !ok {
		return false
	}
	r, ok := canonicalBase(refBase)
	if !ok {
		return false
	}
	table.add(key, RecalDatum{Observations: 1, Mismatches: mismatchCount(b != r)})
	return true
}

func mismatchCount(mismatch bool) int64 {
	if mismatch {
		return 1
	}
	return 0
}

func addTo(datum *RecalDatum, ok bool, delta RecalDatum) *RecalDatum {
	if !ok {
		d := delta
		return &d
	}
	datum.Add(delta)
	return datum
}

// add adds delta to the full table and to all collapsed tables.
func (table *Table) add(key Key, delta RecalDatum) {
	datum, ok := table.Full[key]
	table.Full[key] = addTo(datum, ok, delta)
	table.addCollapsed(key, delta)
}

func (table *Table) addCollapsed(key Key, delta RecalDatum) {
	datum, ok := table.ByReadGroup[key.ReadGroup]
	table.ByReadGroup[key.ReadGroup] = addTo(datum, ok, delta)
	qualKey := key.QualKey()
	datum, ok = table.ByQuality[qualKey]
	table.ByQuality[qualKey] = addTo(datum, ok, delta)
	for i, collapsed := range table.ByCovariate {
		if key.Values[i] == NoValue {
			continue
		}
		covKey := key.CovariateKey(i)
		datum, ok = collapsed[covKey]
		collapsed[covKey] = addTo(datum, ok, delta)
	}
}

// Merge adds all counts of other to table. other is not modified.
// Both tables must have the same covariates.
func (table *Table) Merge(other *Table) {
	for key, datum := range other.Full {
		d, ok := table.Full[key]
		table.Full[key] = addTo(d, ok, *datum)
	}
	for key, datum := range other.ByReadGroup {
		d, ok := table.ByReadGroup[key]
		table.ByReadGroup[key] = addTo(d, ok, *datum)
	}
	for key, datum := range other.ByQuality {
		d, ok := table.ByQuality[key]
		table.ByQuality[key] = addTo(d, ok, *datum)
	}
	for i, collapsed := range other.ByCovariate {
		for key, datum := range collapsed {
			d, ok := table.ByCovariate[i][key]
			table.ByCovariate[i][key] = addTo(d, ok, *datum)
		}
	}
}

// mergeTables merges the smaller of two tables into the larger one
// and returns the larger one.
func mergeTables(t1, t2 *Table) *Table {
	if len(t1.Full) < len(t2.Full) {
		t1, t2 = t2, t1
	}
	t1.Merge(t2)
	return t1
}

// RemoveSingletonBins drops, from every per-covariate table, the bins
// of each read group and quality for which only a single covariate
// value was observed. Such a bin carries no information beyond the
// read group and quality table.
func (table *Table) RemoveSingletonBins() {
	for _, collapsed := range table.ByCovariate {
		counts := make(map[QualKey]int)
		for key := range collapsed {
			counts[QualKey{ReadGroup: key.ReadGroup, Qual: key.Qual}]++
		}
		for key := range collapsed {
			if counts[QualKey{ReadGroup: key.ReadGroup, Qual: key.Qual}] == 1 {
				delete(collapsed, key)
			}
		}
	}
}

// Totals returns the sum of all bins of the full table.
func (table *Table) Totals() (total RecalDatum) {
	for _, datum := range table.Full {
		total.Add(*datum)
	}
	return total
}

// SortedKeys returns the keys of the full table in Key.Compare order.
func (table *Table) SortedKeys() []Key {
	keys := make([]Key, 0, len(table.Full))
	for key := range table.Full {
		keys = append(keys, key)
	}
	psort.StableSort(keySorter(keys))
	return keys
}

type keySorter []Key

func (s keySorter) SequentialSort(i, j int) {
	keys := s[i:j]
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].Compare(keys[j]) < 0
	})
}

func (s keySorter) NewTemp() psort.StableSorter {
	return make(keySorter, len(s))
}

func (s keySorter) Len() int {
	return len(s)
}

func (s keySorter) Less(i, j int) bool {
	return s[i].Compare(s[j]) < 0
}

func (s keySorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s, p.(keySorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}
