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

func operatorConsumesReadBases(operator byte) bool {
	switch operator {
	case 'M', 'I', 'S', '=', 'X':
		return true
	default:
		return false
	}
}

func operatorConsumesReferenceBases(operator byte) bool {
	switch operator {
	case 'M', 'D', 'N', '=', 'X':
		return true
	default:
		return false
	}
}

// ReadLengthFromCigar sums the lengths of all CIGAR operations that
// consume read bases.
func ReadLengthFromCigar(cigar []CigarOperation) int32 {
	var length int32
	for _, op := range cigar {
		if operatorConsumesReadBases(op.Operation) {
			length += op.Length
		}
	}
	return length
}

// ReferenceLengthFromCigar sums the lengths of all CIGAR operations
// that consume reference bases.
func ReferenceLengthFromCigar(cigar []CigarOperation) int32 {
	var length int32
	for _, op := range cigar {
		if operatorConsumesReferenceBases(op.Operation) {
			length += op.Length
		}
	}
	return length
}

// ReadOffsets returns, for every reference position covered by the
// alignment starting from aln.Start(), the offset of the read base
// aligned to it, or -1 for deletions and skipped regions.
func (aln *Alignment) ReadOffsets() []int32 {
	offsets := make([]int32, 0, ReferenceLengthFromCigar(aln.CIGAR))
	var readPos int32
	for _, op := range aln.CIGAR {
		switch op.Operation {
		case 'M', '=', 'X':
			for i := int32(0); i < op.Length; i++ {
				offsets = append(offsets, readPos)
				readPos++
			}
		case 'D', 'N':
			for i := int32(0); i < op.Length; i++ {
				offsets = append(offsets, -1)
			}
		case 'I', 'S':
			readPos += op.Length
		}
	}
	return offsets
}

// NoReferenceBase marks read bases that are not aligned to the
// reference, like inserted or soft-clipped bases.
const NoReferenceBase = '+'

// AlignedReferenceBases returns, for every read base, the reference
// base it is aligned to, or NoReferenceBase. ref is the complete
// contig sequence.
func (aln *Alignment) AlignedReferenceBases(ref []byte) []byte {
	result := make([]byte, 0, len(aln.SEQ))
	refPos := aln.Start()
	for _, op := range aln.CIGAR {
		switch op.Operation {
		case 'M', '=', 'X':
			for i := int32(0); i < op.Length; i++ {
				if refPos >= 0 && int(refPos) < len(ref) {
					result = append(result, ref[refPos])
				} else {
					result = append(result, 'N')
				}
				refPos++
			}
		case 'D', 'N':
			refPos += op.Length
		case 'I', 'S':
			for i := int32(0); i < op.Length; i++ {
				result = append(result, NoReferenceBase)
			}
		}
	}
	return result
}
