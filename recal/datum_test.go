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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmpiricalQuality(t *testing.T) {
	assert.InDelta(t, 20.0, EmpiricalQuality(1000, 10, 0, 40), 1e-9)
	assert.Equal(t, 40.0, EmpiricalQuality(1000, 0, 0, 40))
	assert.Equal(t, 40.0, EmpiricalQuality(0, 0, 0, 40))
	assert.Equal(t, 0.0, EmpiricalQuality(10, 10, 0, 40))
	assert.Equal(t, 30.0, EmpiricalQuality(1000000, 0, 0, 30))
	assert.Equal(t, EmpiricalQuality(1000, 10, 0, 40), EmpiricalQuality(1000, 10, -3, 40))

	prev := EmpiricalQuality(1000, 0, 1, 40)
	assert.True(t, prev <= 40)
	for mismatches := int64(1); mismatches <= 100; mismatches++ {
		q := EmpiricalQuality(1000, mismatches, 1, 40)
		assert.True(t, q <= prev, "quality increases at %v mismatches", mismatches)
		assert.True(t, q >= 0)
		prev = q
	}
}

func TestRecalDatum(t *testing.T) {
	var datum RecalDatum
	datum.Increment(false)
	datum.Increment(true)
	datum.Add(RecalDatum{Observations: 98, Mismatches: 0})
	assert.Equal(t, RecalDatum{Observations: 100, Mismatches: 1}, datum)
	assert.Equal(t, uint8(20), datum.EmpiricalQualityByte(0, 40))
	assert.Equal(t, uint8(0), RecalDatum{Observations: 1, Mismatches: 1}.EmpiricalQualityByte(0, 40))
}
