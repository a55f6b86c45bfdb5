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

import "math"

// MaxOptionalCovariates is the maximum number of optional covariates
// in a Key.
const MaxOptionalCovariates = 6

// NoValue marks a covariate that is not defined for a base, like the
// dinucleotide of the first base of a read.
const NoValue int32 = math.MinInt32

// A Key is a covariate tuple. The read group and the reported quality
// are always present. Values holds the optional covariates in the
// order of the run's covariate list; unused trailing positions hold
// NoValue.
type Key struct {
	ReadGroup string
	Qual      uint8
	Values    [MaxOptionalCovariates]int32
}

// NewKey returns a key without optional covariate values.
func NewKey(readGroup string, qual uint8) Key {
	key := Key{ReadGroup: readGroup, Qual: qual}
	for i := range key.Values {
		key.Values[i] = NoValue
	}
	return key
}

func compareInt32(x, y int32) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Compare orders keys by read group, quality, and then the optional
// values in order. NoValue sorts first.
func (key Key) Compare(other Key) int {
	switch {
	case key.ReadGroup < other.ReadGroup:
		return -1
	case key.ReadGroup > other.ReadGroup:
		return 1
	case key.Qual != other.Qual:
		return compareInt32(int32(key.Qual), int32(other.Qual))
	}
	for i, v := range key.Values {
		if c := compareInt32(v, other.Values[i]); c != 0 {
			return c
		}
	}
	return 0
}

// QualKey is a Key collapsed to read group and quality.
type QualKey struct {
	ReadGroup string
	Qual      uint8
}

// CovariateKey is a Key collapsed to read group, quality, and the
// value of a single optional covariate.
type CovariateKey struct {
	ReadGroup string
	Qual      uint8
	Value     int32
}

// QualKey drops the optional covariates of key.
func (key Key) QualKey() QualKey {
	return QualKey{ReadGroup: key.ReadGroup, Qual: key.Qual}
}

// CovariateKey keeps only the optional covariate at index i.
func (key Key) CovariateKey(i int) CovariateKey {
	return CovariateKey{ReadGroup: key.ReadGroup, Qual: key.Qual, Value: key.Values[i]}
}
