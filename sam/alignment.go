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

package sam

import (
	"sort"
	"strings"

	bsam "github.com/biogo/hts/sam"
	psort "github.com/exascience/pargo/sort"
)

// Flag bits of SAM alignments.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

// CigarOperation is one element of a CIGAR string.
type CigarOperation struct {
	Length    int32
	Operation byte
}

// An Alignment is a mapped read, with the tags that covariate
// counting needs extracted into fields.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	// 1-based leftmost mapping position
	POS   int32
	MAPQ  byte
	CIGAR []CigarOperation
	// upper-case bases in alignment order
	SEQ []byte
	// Phred qualities, not ASCII encoded
	QUAL []byte

	// RG is the read group id, or "" if absent.
	RG string
	// PL is the platform of the read group in the header, or "" if
	// absent.
	PL string
	// CS and CQ are the SOLiD color-space tags, or "" if absent.
	CS, CQ string

	record *bsam.Record
}

func (aln *Alignment) IsUnmapped() bool  { return (aln.FLAG & Unmapped) != 0 }
func (aln *Alignment) IsReversed() bool  { return (aln.FLAG & Reversed) != 0 }
func (aln *Alignment) IsSecondary() bool { return (aln.FLAG & Secondary) != 0 }
func (aln *Alignment) IsQCFailed() bool  { return (aln.FLAG & QCFailed) != 0 }
func (aln *Alignment) IsDuplicate() bool { return (aln.FLAG & Duplicate) != 0 }

// IsSecondOfPair is true for the last segment of a paired read.
func (aln *Alignment) IsSecondOfPair() bool {
	return aln.FLAG&(Multiple|Last) == Multiple|Last
}

// IsSolid determines whether the platform of the read is SOLiD.
func (aln *Alignment) IsSolid() bool {
	return IsSolidPlatform(aln.PL)
}

// IsSolidPlatform determines whether a platform string denotes SOLiD,
// like "SOLID" or "ABI_SOLID".
func IsSolidPlatform(platform string) bool {
	return strings.Contains(strings.ToUpper(platform), "SOLID")
}

// Start returns the 0-based leftmost reference position.
func (aln *Alignment) Start() int32 {
	return aln.POS - 1
}

// End returns the 0-based exclusive rightmost reference position.
func (aln *Alignment) End() int32 {
	return aln.Start() + ReferenceLengthFromCigar(aln.CIGAR)
}

// CoordinateLess orders alignments by contig name and position.
func CoordinateLess(aln1, aln2 *Alignment) bool {
	if aln1.RNAME != aln2.RNAME {
		return aln1.RNAME < aln2.RNAME
	}
	return aln1.POS < aln2.POS
}

type (
	// By is a less function on alignments.
	By func(aln1, aln2 *Alignment) bool

	// AlignmentSorter is a psort.StableSorter for alignments.
	AlignmentSorter struct {
		alns []*Alignment
		by   By
	}
)

func (s AlignmentSorter) SequentialSort(i, j int) {
	alns, by := s.alns[i:j], s.by
	sort.SliceStable(alns, func(i, j int) bool {
		return by(alns[i], alns[j])
	})
}

func (s AlignmentSorter) NewTemp() psort.StableSorter {
	return AlignmentSorter{make([]*Alignment, len(s.alns)), s.by}
}

func (s AlignmentSorter) Len() int {
	return len(s.alns)
}

func (s AlignmentSorter) Less(i, j int) bool {
	return s.by(s.alns[i], s.alns[j])
}

func (s AlignmentSorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s.alns, p.(AlignmentSorter).alns
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelStableSort sorts alignments with a parallel stable sort.
func (by By) ParallelStableSort(alns []*Alignment) {
	psort.StableSort(AlignmentSorter{alns, by})
}
