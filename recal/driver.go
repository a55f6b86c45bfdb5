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
	"context"
	"io"

	"github.com/exascience/pargo/parallel"
	"github.com/pkg/errors"

	"github.com/exascience/elrecal/sam"
)

// A PileupElement is one read base at a locus. Offset is the index of
// the base in the read, in alignment order.
type PileupElement struct {
	Read   *sam.Alignment
	Offset int
}

// A Locus is a reference position with all read bases aligned to it.
// Pos is 0-based.
type Locus struct {
	Contig   string
	Pos      int32
	RefBase  byte
	Elements []PileupElement
	// Retired lists reads that cover no later locus of the same
	// region.
	Retired []*sam.Alignment
}

// A LocusSource produces the loci of a region in increasing order.
// Next returns io.EOF after the last locus.
type LocusSource interface {
	Next() (*Locus, error)
}

// A Region is an independently countable part of the input.
type Region interface {
	Open() (LocusSource, error)
	String() string
}

// KnownSites determines whether a 0-based position is a known
// variant site.
type KnownSites interface {
	IsKnown(contig string, pos int32) bool
}

// Counts is the result of a covariate counting run.
type Counts struct {
	Table   *Table
	Counted CountedData
}

// Merge adds other to counts.
func (counts *Counts) Merge(other *Counts) {
	counts.Table = mergeTables(counts.Table, other.Table)
	counts.Counted.Add(other.Counted)
}

// A Counter counts covariates for a stream of loci. A Counter is not
// safe for concurrent use, but several counters may share the same
// ReadContexts and Diagnostics.
type Counter struct {
	Counts
	contexts *ReadContexts
	known    KnownSites
	args     *Arguments
	diag     *Diagnostics
}

// NewCounter returns a counter with an empty table. known may be nil.
func NewCounter(covariates []string, contexts *ReadContexts, known KnownSites, args *Arguments, diag *Diagnostics) *Counter {
	return &Counter{
		Counts:   Counts{Table: NewTable(covariates)},
		contexts: contexts,
		known:    known,
		args:     args,
		diag:     diag,
	}
}

func locationError(err error, locus *Locus) error {
	return errors.WithMessagef(err, "at %v:%v", locus.Contig, locus.Pos+1)
}

// usableBase returns the canonical base of a pileup element, or ok ==
// false for bases that are never counted: bases of skipped reads,
// bases with quality 0, and bases other than A, C, G, and T.
func (counter *Counter) usableBase(element PileupElement) (ctx *ReadContext, base byte, ok bool, err error) {
	if ctx, err = counter.contexts.Get(element.Read); err != nil || ctx.Skip {
		return ctx, 0, false, err
	}
	if element.Read.QUAL[element.Offset] == 0 {
		return ctx, 0, false, nil
	}
	base, ok = canonicalBase(element.Read.SEQ[element.Offset])
	return ctx, base, ok, nil
}

func (counter *Counter) colorSpaceInconsistent(ctx *ReadContext, offset int) bool {
	return ctx.ColorSpace != nil && counter.args.SolidRecalMode != DoNothing && ctx.ColorSpace.IsInconsistent(offset)
}

// Map counts the bases of a single locus. Bases at known sites only
// contribute to the known-site mismatch rate. Known and novel sites
// filter bases the same way, so that their mismatch rates compare.
func (counter *Counter) Map(locus *Locus) error {
	defer func() {
		for _, aln := range locus.Retired {
			counter.contexts.Release(aln)
		}
	}()
	counted := &counter.Counted
	refBase, refOK := canonicalBase(locus.RefBase)
	if counter.known != nil && counter.known.IsKnown(locus.Contig, locus.Pos) {
		counted.SkippedSites++
		if refOK {
			for _, element := range locus.Elements {
				ctx, base, ok, err := counter.usableBase(element)
				if err != nil {
					return locationError(err, locus)
				}
				if ok && !counter.colorSpaceInconsistent(ctx, element.Offset) {
					counted.countKnown(base != refBase)
				}
			}
		}
	} else {
		for _, element := range locus.Elements {
			ctx, base, ok, err := counter.usableBase(element)
			if err != nil {
				return locationError(err, locus)
			}
			if !ok {
				continue
			}
			if counter.colorSpaceInconsistent(ctx, element.Offset) {
				if refOK && base == refBase {
					counted.SolidInsertedReferenceBases++
				} else {
					counted.OtherColorSpaceInconsistency++
				}
				continue
			}
			if counter.Table.Increment(ctx.Keys[element.Offset], base, locus.RefBase) {
				counted.CountedBases++
				counted.countNovel(base != refBase)
			}
		}
		counted.CountedSites++
	}
	counted.tick(counter.args.KnownSiteMismatchRatio, counter.diag)
	return nil
}

const cancelCheckInterval = 4096

// CountRegion counts all loci of a region.
func (counter *Counter) CountRegion(ctx context.Context, region Region) error {
	source, err := region.Open()
	if err != nil {
		return errors.WithMessagef(err, "while opening region %v", region)
	}
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		locus, err := source.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WithMessagef(err, "in region %v", region)
		}
		if err := counter.Map(locus); err != nil {
			return err
		}
	}
}

type partialCounts struct {
	counts *Counts
	err    error
}

// ErrNoUsableData is returned when a run did not count a single base.
var ErrNoUsableData = errors.New("Could not find any usable data in the input BAM file(s)")

// CountCovariates counts covariates over all regions in parallel. Each
// worker owns a private table, and the partial results are merged in
// a reduction tree, so the result does not depend on the number of
// workers or the order of the regions. known may only be nil when
// args.RunWithoutKnownSites is set.
func CountCovariates(ctx context.Context, regions []Region, known KnownSites, args *Arguments, diag *Diagnostics) (*Counts, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if known == nil {
		if !args.RunWithoutKnownSites {
			return nil, configErrorf("This calculation is critically dependent on being able to skip over known variant sites. Please provide known sites, or use --run-without-known-sites if you know what you are doing")
		}
		diag.WarnOncef("runWithoutKnownSites", "Running without known sites. Every mismatch is counted as a sequencing error")
	}
	covariates, err := NewCovariates(args)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, ErrNoUsableData
	}
	names := OptionalCovariateNames(covariates)
	contexts := NewReadContexts(covariates, args, diag)
	result := parallel.RangeReduce(0, len(regions), 0, func(low, high int) interface{} {
		counter := NewCounter(names, contexts, known, args, diag)
		for _, region := range regions[low:high] {
			if err := counter.CountRegion(ctx, region); err != nil {
				return partialCounts{err: err}
			}
		}
		return partialCounts{counts: &counter.Counts}
	}, func(x, y interface{}) interface{} {
		left, right := x.(partialCounts), y.(partialCounts)
		if left.err != nil {
			return left
		}
		if right.err != nil {
			return right
		}
		left.counts.Merge(right.counts)
		return left
	}).(partialCounts)
	if result.err != nil {
		return nil, result.err
	}
	if result.counts.Counted.CountedBases == 0 {
		return nil, ErrNoUsableData
	}
	return result.counts, nil
}
