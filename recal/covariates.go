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
	"strconv"

	"github.com/exascience/elrecal/sam"
)

// A Covariate computes an optional covariate for every base of a read.
type Covariate interface {
	// Name is the column name in the report.
	Name() string
	// Values stores the value for every base of the read in values, in
	// alignment order. values has one entry per base. A base without a
	// defined value gets NoValue.
	Values(read *Read, values []int32) error
	// Format renders a value other than NoValue for the report.
	Format(value int32) string
}

var simpleBaseToBaseIndexTable = map[byte]int32{'A': 0, 'a': 0, 'C': 1, 'c': 1, 'G': 2, 'g': 2, 'T': 3, 't': 3}

func simpleBaseToBaseIndex(base byte) int32 {
	if index, ok := simpleBaseToBaseIndexTable[base]; ok {
		return index
	}
	return -1
}

const baseIndexToBase = "ACGT"

var baseComplementTable = map[byte]byte{'A': 'T', 'a': 'T', 'C': 'G', 'c': 'G', 'G': 'C', 'g': 'C', 'T': 'A', 't': 'A'}

func complement(base byte) byte {
	if c, ok := baseComplementTable[base]; ok {
		return c
	}
	return base
}

func isRegularBase(base byte) bool {
	return simpleBaseToBaseIndex(base) >= 0
}

// sequencingOrder returns the bases and qualities of the read in the
// direction in which they were sequenced, complemented for reads on
// the negative strand.
func sequencingOrder(aln *sam.Alignment) (bases, quals []byte) {
	n := len(aln.SEQ)
	if !aln.IsReversed() {
		return aln.SEQ, aln.QUAL
	}
	bases = make([]byte, n)
	quals = make([]byte, len(aln.QUAL))
	for i, b := range aln.SEQ {
		bases[n-1-i] = complement(b)
	}
	for i, q := range aln.QUAL {
		quals[len(quals)-1-i] = q
	}
	return bases, quals
}

// storedIndex maps an index in sequencing order to an index in
// alignment order.
func storedIndex(aln *sam.Alignment, k, n int) int {
	if aln.IsReversed() {
		return n - 1 - k
	}
	return k
}

var (
	discreteCyclePlatforms = map[string]bool{
		"ILLUMINA": true, "SLX": true, "SOLEXA": true,
		"SOLID": true, "ABI_SOLID": true,
		"PACBIO": true, "COMPLETE": true,
	}
	flowCyclePlatforms = map[string]bool{
		"LS454": true, "454": true, "ION_TORRENT": true,
	}
)

type cycleCovariate struct {
	maxCycle int32
}

func (cycleCovariate) Name() string {
	return "CycleCovariate"
}

func (cycleCovariate) Format(value int32) string {
	return strconv.FormatInt(int64(value), 10)
}

func (c cycleCovariate) Values(read *Read, values []int32) error {
	switch {
	case discreteCyclePlatforms[read.Platform] || sam.IsSolidPlatform(read.Platform):
		discreteCycles(read.Alignment, values)
	case flowCyclePlatforms[read.Platform]:
		flowCycles(read.Alignment, values)
	default:
		return configErrorf("The platform (%v) associated with read group %v is not a recognized platform. Implemented options are e.g. illumina, 454, and solid", read.Platform, read.ReadGroup)
	}
	if n := int32(len(values)); n > c.maxCycle {
		return readErrorf(read.Alignment, "The maximum allowed value for the cycle is %v, but a cycle of %v was detected. Please use the --maximum-cycle-value argument to increase this value", c.maxCycle, n)
	}
	return nil
}

// discreteCycles numbers the bases 1, 2, ... in sequencing order, or
// -1, -2, ... for the second read of a pair.
func discreteCycles(aln *sam.Alignment, values []int32) {
	var reversed, last int32
	if aln.IsReversed() {
		reversed = 1
	}
	if aln.IsSecondOfPair() {
		last = 1
	}
	readOrderFactor := 1 - 2*last
	cycle := readOrderFactor + reversed*(int32(len(values))-1)*readOrderFactor
	increment := (1 - 2*reversed) * readOrderFactor
	for i := range values {
		values[i] = cycle
		cycle += increment
	}
}

// flowCycles gives all bases of a homopolymer run the same cycle. The
// cycle advances whenever the nucleotide changes in sequencing order.
func flowCycles(aln *sam.Alignment, values []int32) {
	n := len(values)
	step := int32(1)
	if aln.IsSecondOfPair() {
		step = -1
	}
	cycle := step
	var prev byte
	for k := 0; k < n; k++ {
		i := storedIndex(aln, k, n)
		base := aln.SEQ[i]
		if k > 0 && base != prev {
			cycle += step
		}
		prev = base
		values[i] = cycle
	}
}

type dinucCovariate struct{}

func (dinucCovariate) Name() string {
	return "DinucCovariate"
}

func (dinucCovariate) Format(value int32) string {
	return string([]byte{baseIndexToBase[value>>2], baseIndexToBase[value&3]})
}

func dinuc(prev, cur byte) int32 {
	p, c := simpleBaseToBaseIndex(prev), simpleBaseToBaseIndex(cur)
	if p < 0 || c < 0 {
		return NoValue
	}
	return p<<2 | c
}

func (dinucCovariate) Values(read *Read, values []int32) error {
	bases := read.SEQ
	n := len(values)
	if n == 0 {
		return nil
	}
	if !read.IsReversed() {
		values[0] = NoValue
		for i := 1; i < n; i++ {
			values[i] = dinuc(bases[i-1], bases[i])
		}
		return nil
	}
	values[n-1] = NoValue
	for i := 0; i < n-1; i++ {
		values[i] = dinuc(complement(bases[i+1]), complement(bases[i]))
	}
	return nil
}

// The maximum context size such that the packed key fits in an int32.
const maxContextSize = 13

const lengthBits = 4

// keyFromContext packs dna[start:end] with the length in the lowest
// bits and the first base right above them, or returns -1 if there
// is a base other than A, C, G, or T.
func keyFromContext(dna []byte, start, end int) int32 {
	key := int32(end - start)
	var bitOffset uint = lengthBits
	for i := start; i < end; i++ {
		baseIndex := simpleBaseToBaseIndex(dna[i])
		if baseIndex == -1 {
			return -1
		}
		key |= baseIndex << bitOffset
		bitOffset += 2
	}
	return key
}

func keyToString(key int32) string {
	length := int(key & 0xF)
	realKey := key >> lengthBits
	result := make([]byte, 0, length)
	for i := 0; i < length; i++ {
		result = append(result, baseIndexToBase[realKey&0x3])
		realKey >>= 2
	}
	return string(result)
}

type contextCovariate struct {
	size           int
	lowQualityTail uint8
}

func (contextCovariate) Name() string {
	return "ContextCovariate"
}

func (contextCovariate) Format(value int32) string {
	return keyToString(value)
}

// Values gives every base the context of the size bases that end with
// it in sequencing order. Bases with a quality at or below the low
// quality tail do not take part in any context.
func (c contextCovariate) Values(read *Read, values []int32) error {
	seqBases, seqQuals := sequencingOrder(read.Alignment)
	n := len(values)
	bases := make([]byte, n)
	for k := 0; k < n; k++ {
		if k < len(seqQuals) && seqQuals[k] <= c.lowQualityTail {
			bases[k] = 'N'
		} else {
			bases[k] = seqBases[k]
		}
	}
	for k := 0; k < n; k++ {
		value := NoValue
		if start := k - c.size + 1; start >= 0 {
			if key := keyFromContext(bases, start, k+1); key >= 0 {
				value = key
			}
		}
		values[storedIndex(read.Alignment, k, n)] = value
	}
	return nil
}

type mappingQualityCovariate struct{}

func (mappingQualityCovariate) Name() string {
	return "MappingQualityCovariate"
}

func (mappingQualityCovariate) Format(value int32) string {
	return strconv.FormatInt(int64(value), 10)
}

func (mappingQualityCovariate) Values(read *Read, values []int32) error {
	for i := range values {
		values[i] = int32(read.MAPQ)
	}
	return nil
}

type homopolymerCovariate struct{}

func (homopolymerCovariate) Name() string {
	return "HomopolymerCovariate"
}

func (homopolymerCovariate) Format(value int32) string {
	return strconv.FormatInt(int64(value), 10)
}

// Values counts, for every base, the immediately preceding bases in
// sequencing order that are equal to it.
func (homopolymerCovariate) Values(read *Read, values []int32) error {
	bases, _ := sequencingOrder(read.Alignment)
	n := len(values)
	var run int32
	for k := 0; k < n; k++ {
		if k > 0 && bases[k] == bases[k-1] {
			run++
		} else {
			run = 0
		}
		values[storedIndex(read.Alignment, k, n)] = run
	}
	return nil
}

type positionCovariate struct{}

func (positionCovariate) Name() string {
	return "PositionCovariate"
}

func (positionCovariate) Format(value int32) string {
	return strconv.FormatInt(int64(value), 10)
}

func (positionCovariate) Values(read *Read, values []int32) error {
	n := len(values)
	for k := 0; k < n; k++ {
		values[storedIndex(read.Alignment, k, n)] = int32(k)
	}
	return nil
}
