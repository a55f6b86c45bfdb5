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

// RecalDatum accumulates the observations and mismatches of one bin.
type RecalDatum struct {
	Observations int64
	Mismatches   int64
}

// Increment adds one observation, and one mismatch if mismatch is
// true.
func (datum *RecalDatum) Increment(mismatch bool) {
	datum.Observations++
	if mismatch {
		datum.Mismatches++
	}
}

// Add adds the counts of other to datum.
func (datum *RecalDatum) Add(other RecalDatum) {
	datum.Observations += other.Observations
	datum.Mismatches += other.Mismatches
}

// EmpiricalQuality returns the Phred-scaled error rate
// (mismatches+smoothing)/(observations+smoothing), clipped to maxQual.
// When there is no evidence of errors, or no evidence at all, the
// result is maxQual.
func EmpiricalQuality(observations, mismatches int64, smoothing int, maxQual float64) float64 {
	if smoothing < 0 {
		smoothing = 0
	}
	s := int64(smoothing)
	numerator, denominator := float64(mismatches+s), float64(observations+s)
	if numerator <= 0 || denominator <= 0 {
		return maxQual
	}
	return math.Min(10*math.Log10(denominator/numerator), maxQual)
}

// EmpiricalQuality of the datum, see the function of the same name.
func (datum RecalDatum) EmpiricalQuality(smoothing int, maxQual float64) float64 {
	return EmpiricalQuality(datum.Observations, datum.Mismatches, smoothing, maxQual)
}

// EmpiricalQualityByte is the empirical quality rounded to a Phred
// score.
func (datum RecalDatum) EmpiricalQualityByte(smoothing int, maxQual float64) uint8 {
	q := math.Round(datum.EmpiricalQuality(smoothing, maxQual))
	if q < 0 {
		return 0
	}
	return uint8(q)
}
