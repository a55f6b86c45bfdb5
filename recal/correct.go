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

import "github.com/exascience/elrecal/sam"

// CorrectRead applies the SOLiD recalibration mode of args to the
// bases and qualities of a read, in place. ref is the complete contig
// sequence the read is aligned to. Reads of other platforms, unmapped
// reads, and reads left alone by the no-call strategy are not
// corrected. PURGE_READ marks reads with no-call colors as failing
// vendor quality checks, so that downstream tools can filter them.
func CorrectRead(aln *sam.Alignment, ref []byte, args *Arguments, diag *Diagnostics) error {
	if aln.IsUnmapped() {
		return nil
	}
	read, err := ResolveRead(aln, args, diag)
	if err != nil {
		return err
	}
	if !read.IsSolid() {
		return nil
	}
	if aln.CS == "" {
		return readErrorf(aln, missingColorSpaceMsg)
	}
	skip, purge, err := checkNoCalls(aln, args, diag)
	if err != nil || skip {
		if purge {
			aln.FLAG |= sam.QCFailed
		}
		return err
	}
	cs, err := ParseColorSpace(aln)
	if err != nil {
		return err
	}
	coin := NewReadCoin(args.Seed, aln)
	return cs.Correct(aln, aln.AlignedReferenceBases(ref), args.SolidRecalMode, coin)
}
