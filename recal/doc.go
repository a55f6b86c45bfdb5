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

// Package recal implements the covariate counting pass of base
// quality score recalibration.
//
// Every usable base of every read that overlaps a covered reference
// locus yields a Key: its read group, its reported quality, and the
// values of the configured optional covariates (cycle, dinucleotide,
// and so on). The Table counts observations and mismatches against
// the reference per Key, and keeps collapsed views per read group,
// per read group and quality, and per single covariate up to date
// with every increment. Loci at known polymorphic sites are not used
// for training, but feed a sanity check that compares their mismatch
// rate with that of novel sites.
//
// CountCovariates processes regions in parallel, each with its own
// Table, and merges the partial tables in a tree reduction. Table
// merging is commutative and associative, so the result does not
// depend on how the input was partitioned.
package recal
