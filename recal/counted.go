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

// CountedData holds the site and base counters of a covariate counting
// run. Counters from different workers are combined with Add.
type CountedData struct {
	CountedSites int64
	CountedBases int64
	SkippedSites int64

	SolidInsertedReferenceBases  int64
	OtherColorSpaceInconsistency int64

	// Mismatch counters at known and at novel sites, for the sanity
	// check of the known sites.
	KnownMismatches int64
	KnownBases      int64
	NovelMismatches int64
	NovelBases      int64

	LociSinceLastCheck int64
}

// Add adds the counters of other to counted.
func (counted *CountedData) Add(other CountedData) {
	counted.CountedSites += other.CountedSites
	counted.CountedBases += other.CountedBases
	counted.SkippedSites += other.SkippedSites
	counted.SolidInsertedReferenceBases += other.SolidInsertedReferenceBases
	counted.OtherColorSpaceInconsistency += other.OtherColorSpaceInconsistency
	counted.KnownMismatches += other.KnownMismatches
	counted.KnownBases += other.KnownBases
	counted.NovelMismatches += other.NovelMismatches
	counted.NovelBases += other.NovelBases
	counted.LociSinceLastCheck += other.LociSinceLastCheck
}

func (counted *CountedData) countKnown(mismatch bool) {
	counted.KnownBases++
	if mismatch {
		counted.KnownMismatches++
	}
}

func (counted *CountedData) countNovel(mismatch bool) {
	counted.NovelBases++
	if mismatch {
		counted.NovelMismatches++
	}
}

// KnownMismatchRate returns the fraction of mismatching bases at
// known sites.
func (counted *CountedData) KnownMismatchRate() float64 {
	if counted.KnownBases == 0 {
		return 0
	}
	return float64(counted.KnownMismatches) / float64(counted.KnownBases)
}

// NovelMismatchRate returns the fraction of mismatching bases at
// novel sites.
func (counted *CountedData) NovelMismatchRate() float64 {
	if counted.NovelBases == 0 {
		return 0
	}
	return float64(counted.NovelMismatches) / float64(counted.NovelBases)
}

// checkKnownSites warns when the mismatch rate at known sites is
// suspiciously low compared to the one at novel sites, which hints at
// the wrong known sites being used. After a warning, checks become
// less frequent.
func (counted *CountedData) checkKnownSites(ratio float64, diag *Diagnostics) {
	if counted.KnownBases == 0 || counted.NovelBases == 0 {
		return
	}
	knownRate, novelRate := counted.KnownMismatchRate(), counted.NovelMismatchRate()
	if knownRate < ratio*novelRate {
		diag.Warnf("The variation rate at the supplied list of known variant sites seems suspiciously low. Please double-check that the correct known sites are being used. [known variation rate = %.4f, novel variation rate = %.4f]", knownRate, novelRate)
		diag.BackOff(diag.CheckFrequency())
	}
}

// tick counts one more locus and runs the known-site check when due.
func (counted *CountedData) tick(ratio float64, diag *Diagnostics) {
	counted.LociSinceLastCheck++
	if counted.LociSinceLastCheck >= diag.CheckFrequency() {
		counted.LociSinceLastCheck = 0
		counted.checkKnownSites(ratio, diag)
	}
}
