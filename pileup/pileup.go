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

// Package pileup turns sorted alignments into the loci that covariate
// counting visits, split into windows that can be counted in
// parallel.
package pileup

import (
	"fmt"
	"io"
	"sort"

	"github.com/exascience/pargo/parallel"
	"github.com/pkg/errors"

	"github.com/exascience/elrecal/fasta"
	"github.com/exascience/elrecal/recal"
	"github.com/exascience/elrecal/sam"
)

// DefaultWindowSize is the default number of reference positions per
// region.
const DefaultWindowSize = 1000000

// Options control which reads enter the pileup, and how the genome is
// split into regions.
type Options struct {
	KeepSecondary  bool
	KeepDuplicates bool
	KeepQCFailed   bool
	WindowSize     int32
}

// DefaultOptions returns options that drop secondary, duplicate, and
// QC-failed reads.
func DefaultOptions() Options {
	return Options{WindowSize: DefaultWindowSize}
}

// Keep determines whether an alignment is used for counting. Unmapped
// reads, reads with mapping quality 0 or 255 (unavailable), and reads
// that align no base to the reference are never used.
func (opts Options) Keep(aln *sam.Alignment) bool {
	switch {
	case aln.IsUnmapped(), aln.MAPQ == 0, aln.MAPQ == 255:
		return false
	case len(aln.QUAL) == 0, len(aln.CIGAR) == 0, aln.RNAME == "*", aln.POS < 1:
		return false
	case aln.End() <= aln.Start():
		return false
	case aln.IsSecondary() && !opts.KeepSecondary:
		return false
	case aln.IsDuplicate() && !opts.KeepDuplicates:
		return false
	case aln.IsQCFailed() && !opts.KeepQCFailed:
		return false
	}
	return true
}

// activeRead is a read that overlaps the current position of a source.
type activeRead struct {
	aln     *sam.Alignment
	start   int32
	end     int32
	offsets []int32
}

// window is a region of a single contig. alns holds all reads that
// overlap the window, sorted by start position.
type window struct {
	contig     string
	start, end int32
	alns       []*sam.Alignment
	ref        []byte
}

func (w *window) String() string {
	return fmt.Sprintf("%v:%v-%v", w.contig, w.start+1, w.end)
}

// Open starts a pass over the loci of the window.
func (w *window) Open() (recal.LocusSource, error) {
	return &source{window: w, pos: w.start}, nil
}

type source struct {
	*window
	pos     int32
	next    int
	active  []activeRead
	retired []*sam.Alignment
}

func (s *source) activate() {
	for ; s.next < len(s.alns); s.next++ {
		aln := s.alns[s.next]
		start := aln.Start()
		if start > s.pos {
			return
		}
		s.active = append(s.active, activeRead{
			aln:     aln,
			start:   start,
			end:     aln.End(),
			offsets: aln.ReadOffsets(),
		})
	}
}

func (s *source) refBase(pos int32) byte {
	if pos < 0 || int(pos) >= len(s.ref) {
		return 'N'
	}
	return s.ref[pos]
}

// Next returns the next locus with at least one aligned read base.
// Positions inside deletions only are skipped.
func (s *source) Next() (*recal.Locus, error) {
	for s.pos < s.end {
		if len(s.active) == 0 {
			if s.next >= len(s.alns) {
				break
			}
			if start := s.alns[s.next].Start(); start > s.pos {
				s.pos = start
				if s.pos >= s.end {
					break
				}
			}
		}
		s.activate()
		locus := &recal.Locus{Contig: s.contig, Pos: s.pos, RefBase: s.refBase(s.pos)}
		remaining := s.active[:0]
		for _, read := range s.active {
			if offset := read.offsets[s.pos-read.start]; offset >= 0 {
				locus.Elements = append(locus.Elements, recal.PileupElement{Read: read.aln, Offset: int(offset)})
			}
			if read.end > s.pos+1 {
				remaining = append(remaining, read)
			} else if read.end <= s.end {
				s.retired = append(s.retired, read.aln)
			}
		}
		for i := len(remaining); i < len(s.active); i++ {
			s.active[i] = activeRead{}
		}
		s.active = remaining
		s.pos++
		if len(locus.Elements) > 0 {
			locus.Retired, s.retired = s.retired, nil
			return locus, nil
		}
	}
	return nil, io.EOF
}

// Regions groups the alignments that pass opts.Keep by contig, sorts
// them, and splits every contig into windows of opts.WindowSize
// reference positions. Reads that span a window boundary belong to
// both windows, but every position is visited by exactly one window.
func Regions(alns []*sam.Alignment, ref fasta.Reference, opts Options) ([]recal.Region, error) {
	if opts.WindowSize < 1 {
		opts.WindowSize = DefaultWindowSize
	}
	byContig := make(map[string][]*sam.Alignment)
	for _, aln := range alns {
		if opts.Keep(aln) {
			byContig[aln.RNAME] = append(byContig[aln.RNAME], aln)
		}
	}
	contigs := make([]string, 0, len(byContig))
	for contig := range byContig {
		if _, ok := ref[contig]; !ok {
			return nil, errors.Errorf("contig %v of the input does not occur in the reference", contig)
		}
		contigs = append(contigs, contig)
	}
	sort.Strings(contigs)
	windows := make([][]recal.Region, len(contigs))
	parallel.Range(0, len(contigs), 0, func(low, high int) {
		for i := low; i < high; i++ {
			contig := contigs[i]
			windows[i] = contigWindows(contig, byContig[contig], ref[contig], opts.WindowSize)
		}
	})
	var regions []recal.Region
	for _, w := range windows {
		regions = append(regions, w...)
	}
	return regions, nil
}

func contigWindows(contig string, alns []*sam.Alignment, ref []byte, size int32) []recal.Region {
	sam.By(sam.CoordinateLess).ParallelStableSort(alns)
	var maxSpan, low, high int32 = 0, alns[0].Start(), 0
	for _, aln := range alns {
		if span := aln.End() - aln.Start(); span > maxSpan {
			maxSpan = span
		}
		if end := aln.End(); end > high {
			high = end
		}
	}
	var regions []recal.Region
	for start := low; start < high; start += size {
		end := start + size
		if end > high {
			end = high
		}
		first := sort.Search(len(alns), func(i int) bool {
			return alns[i].Start() >= start-maxSpan
		})
		last := sort.Search(len(alns), func(i int) bool {
			return alns[i].Start() >= end
		})
		var overlapping []*sam.Alignment
		for _, aln := range alns[first:last] {
			if aln.End() > start {
				overlapping = append(overlapping, aln)
			}
		}
		if len(overlapping) > 0 {
			regions = append(regions, &window{
				contig: contig,
				start:  start,
				end:    end,
				alns:   overlapping,
				ref:    ref,
			})
		}
	}
	return regions
}
