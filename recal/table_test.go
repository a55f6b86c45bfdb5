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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	key           Key
	base, refBase byte
}

func testKey(rg string, qual uint8, cycle, dinuc int32) Key {
	key := NewKey(rg, qual)
	key.Values[0] = cycle
	key.Values[1] = dinuc
	return key
}

func testObservations() []observation {
	var result []observation
	bases := []byte("ACGT")
	for i := 0; i < 200; i++ {
		rg := "rg1"
		if i%3 == 0 {
			rg = "rg2"
		}
		dinuc := int32(i % 16)
		if i%7 == 0 {
			dinuc = NoValue
		}
		key := testKey(rg, uint8(20+i%3*5), int32(1+i%10), dinuc)
		result = append(result, observation{key, bases[i%4], bases[(i/4)%4]})
	}
	return result
}

func tableOf(observations []observation) *Table {
	table := NewTable([]string{"CycleCovariate", "DinucCovariate"})
	for _, o := range observations {
		table.Increment(o.key, o.base, o.refBase)
	}
	return table
}

func TestTableIncrement(t *testing.T) {
	table := NewTable([]string{"CycleCovariate", "DinucCovariate"})
	key := testKey("rg1", 30, 1, NoValue)
	assert.True(t, table.Increment(key, 'A', 'A'))
	assert.True(t, table.Increment(key, 'c', 'A'))
	assert.False(t, table.Increment(key, 'N', 'A'))
	assert.False(t, table.Increment(key, 'A', 'N'))

	assert.Equal(t, RecalDatum{Observations: 2, Mismatches: 1}, *table.Full[key])
	assert.Equal(t, RecalDatum{Observations: 2, Mismatches: 1}, *table.ByReadGroup["rg1"])
	assert.Equal(t, RecalDatum{Observations: 2, Mismatches: 1}, *table.ByQuality[QualKey{"rg1", 30}])
	assert.Equal(t, RecalDatum{Observations: 2, Mismatches: 1}, *table.ByCovariate[0][CovariateKey{"rg1", 30, 1}])
	assert.Empty(t, table.ByCovariate[1])
}

func TestTableMerge(t *testing.T) {
	observations := testObservations()
	whole := tableOf(observations)

	t1 := tableOf(observations[:50])
	t2 := tableOf(observations[50:120])
	t3 := tableOf(observations[120:])
	left := mergeTables(mergeTables(t1, t2), t3)

	t1 = tableOf(observations[:50])
	t2 = tableOf(observations[50:120])
	t3 = tableOf(observations[120:])
	right := mergeTables(t3, mergeTables(t2, t1))

	assert.Equal(t, whole.Full, left.Full)
	assert.Equal(t, whole.ByReadGroup, left.ByReadGroup)
	assert.Equal(t, whole.ByQuality, left.ByQuality)
	assert.Equal(t, whole.ByCovariate, left.ByCovariate)
	assert.Equal(t, left.Full, right.Full)
	assert.Equal(t, left.ByCovariate, right.ByCovariate)

	other := tableOf(observations[:10])
	before := other.Totals()
	merged := tableOf(observations[10:20])
	merged.Merge(other)
	assert.Equal(t, before, other.Totals())
	merged.Full[observations[0].key].Observations += 1000
	assert.Equal(t, before, other.Totals())
}

func TestTableCollapse(t *testing.T) {
	table := tableOf(testObservations())
	total := table.Totals()
	assert.Equal(t, int64(200), total.Observations)

	byReadGroup := make(map[string]RecalDatum)
	byQuality := make(map[QualKey]RecalDatum)
	for key, datum := range table.Full {
		d := byReadGroup[key.ReadGroup]
		d.Add(*datum)
		byReadGroup[key.ReadGroup] = d
		q := byQuality[key.QualKey()]
		q.Add(*datum)
		byQuality[key.QualKey()] = q
	}
	require.Len(t, table.ByReadGroup, len(byReadGroup))
	for rg, datum := range byReadGroup {
		assert.Equal(t, datum, *table.ByReadGroup[rg])
	}
	require.Len(t, table.ByQuality, len(byQuality))
	for key, datum := range byQuality {
		assert.Equal(t, datum, *table.ByQuality[key])
	}

	var cycleTotal RecalDatum
	for _, datum := range table.ByCovariate[0] {
		cycleTotal.Add(*datum)
	}
	assert.Equal(t, total, cycleTotal)
}

func TestRemoveSingletonBins(t *testing.T) {
	table := NewTable([]string{"CycleCovariate", "DinucCovariate"})
	table.Increment(testKey("rg1", 30, 1, 5), 'A', 'A')
	table.Increment(testKey("rg1", 30, 2, 5), 'A', 'A')
	table.Increment(testKey("rg1", 20, 1, 6), 'A', 'C')
	table.RemoveSingletonBins()

	assert.Len(t, table.ByCovariate[0], 2)
	assert.Contains(t, table.ByCovariate[0], CovariateKey{"rg1", 30, 1})
	assert.Contains(t, table.ByCovariate[0], CovariateKey{"rg1", 30, 2})
	assert.Empty(t, table.ByCovariate[1])
	assert.Len(t, table.Full, 3)
	assert.Len(t, table.ByQuality, 2)
}

func TestKeyCompare(t *testing.T) {
	k1 := testKey("rg1", 30, 1, NoValue)
	k2 := testKey("rg1", 30, 1, 3)
	k3 := testKey("rg1", 31, -5, 3)
	k4 := testKey("rg2", 2, 1, 3)
	assert.Equal(t, -1, k1.Compare(k2))
	assert.Equal(t, -1, k2.Compare(k3))
	assert.Equal(t, -1, k3.Compare(k4))
	assert.Equal(t, 1, k4.Compare(k1))
	assert.Equal(t, 0, k2.Compare(k2))

	table := NewTable([]string{"CycleCovariate", "DinucCovariate"})
	for _, key := range []Key{k4, k2, k3, k1} {
		table.Increment(key, 'A', 'A')
	}
	assert.Equal(t, []Key{k1, k2, k3, k4}, table.SortedKeys())
}

func TestTableReportsEmpiricalQuality(t *testing.T) {
	table := NewTable([]string{"CycleCovariate", "DinucCovariate"})
	key := testKey("rg1", 30, 5, dinuc('A', 'C'))
	for i := 0; i < 1000; i++ {
		refBase := byte('C')
		if i%100 == 0 {
			refBase = 'G'
		}
		require.True(t, table.Increment(key, 'C', refBase))
	}
	assert.Equal(t, RecalDatum{Observations: 1000, Mismatches: 10}, *table.Full[key])

	counts := &Counts{Table: table, Counted: CountedData{CountedSites: 1000, CountedBases: 1000}}
	var buf bytes.Buffer
	require.NoError(t, counts.WriteCSV(&buf, 0, 40))
	lines := strings.Split(buf.String(), "\n")
	assert.Contains(t, lines, "rg1,30,5,AC,1000,10,20")
	assert.Contains(t, lines, "EOF")
}
