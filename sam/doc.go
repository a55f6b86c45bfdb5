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

// Package sam holds the alignment model used for covariate counting:
// SAM flags, CIGAR helpers, and loading and storing of SAM/BAM files
// via biogo/hts.
//
// Alignments are loaded completely into memory and sorted by
// coordinate, so that they can be partitioned into regions that are
// processed in parallel. See the pileup package for how regions are
// turned into per-locus observations.
package sam
