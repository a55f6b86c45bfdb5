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

package pileup

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elrecal/fasta"
	"github.com/exascience/elrecal/intervals"
	"github.com/exascience/elrecal/recal"
	"github.com/exascience/elrecal/sam"
)

func newAln(name string, pos int32, cigar []sam.CigarOperation, seq string) *sam.Alignment {
	quals := make([]byte, len(seq))
	for i := range quals {
		quals[i] = 30
	}
	return &sam.Alignment{
		QNAME: name,
		RNAME: "chr1",
		POS:   pos,
		MAPQ:  60,
		CIGAR: cigar,
		SEQ:   []byte(seq),
		QUAL:  quals,
		RG:    "rg1",
		PL:    "ILLUMINA",
	}
}

func testAlignments() []*sam.Alignment {
	return []*sam.Alignment{
		newAln("r2", 3, []sam.CigarOperation{{Length: 1, Operation: 'M'}, {Length: 1, Operation: 'D'}, {Length: 2, Operation: 'M'}}, "GTA"),
		newAln("r1", 1, []sam.CigarOperation{{Length: 4, Operation: 'M'}}, "ACGT"),
	}
}

type locusSummary struct {
	pos      int32
	ref      byte
	elements []string
	retired  []string
}

func collect(t *testing.T, regions []recal.Region) (result []locusSummary) {
	for _, region := range regions {
		source, err := region.Open()
		require.NoError(t, err)
		for {
			locus, err := source.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			summary := locusSummary{pos: locus.Pos, ref: locus.RefBase}
			for _, e := range locus.Elements {
				summary.elements = append(summary.elements, e.Read.QNAME+string(e.Read.SEQ[e.Offset]))
			}
			for _, aln := range locus.Retired {
				summary.retired = append(summary.retired, aln.QNAME)
			}
			result = append(result, summary)
		}
	}
	return result
}

func TestRegions(t *testing.T) {
	ref := fasta.Reference{"chr1": []byte("ACGTACNNNN")}
	expected := []locusSummary{
		{0, 'A', []string{"r1A"}, nil},
		{1, 'C', []string{"r1C"}, nil},
		{2, 'G', []string{"r1G", "r2G"}, nil},
		{3, 'T', []string{"r1T"}, []string{"r1"}},
		{4, 'A', []string{"r2T"}, nil},
		{5, 'C', []string{"r2A"}, []string{"r2"}},
	}

	regions, err := Regions(testAlignments(), ref, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "chr1:1-6", regions[0].String())
	assert.Equal(t, expected, collect(t, regions))

	opts := DefaultOptions()
	opts.WindowSize = 3
	regions, err = Regions(testAlignments(), ref, opts)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "chr1:4-6", regions[1].String())
	assert.Equal(t, expected, collect(t, regions))

	_, err = Regions(testAlignments(), fasta.Reference{"chr2": []byte("ACGT")}, opts)
	assert.Error(t, err)
}

func TestKeep(t *testing.T) {
	opts := DefaultOptions()
	aln := newAln("r", 1, []sam.CigarOperation{{Length: 2, Operation: 'M'}}, "AC")
	assert.True(t, opts.Keep(aln))

	for _, change := range []func(aln *sam.Alignment){
		func(aln *sam.Alignment) { aln.FLAG |= sam.Unmapped },
		func(aln *sam.Alignment) { aln.MAPQ = 0 },
		func(aln *sam.Alignment) { aln.MAPQ = 255 },
		func(aln *sam.Alignment) { aln.QUAL = nil },
		func(aln *sam.Alignment) { aln.CIGAR = []sam.CigarOperation{{Length: 2, Operation: 'S'}} },
		func(aln *sam.Alignment) { aln.FLAG |= sam.Secondary },
		func(aln *sam.Alignment) { aln.FLAG |= sam.Duplicate },
		func(aln *sam.Alignment) { aln.FLAG |= sam.QCFailed },
	} {
		aln := newAln("r", 1, []sam.CigarOperation{{Length: 2, Operation: 'M'}}, "AC")
		change(aln)
		assert.False(t, opts.Keep(aln))
	}

	opts.KeepDuplicates = true
	aln.FLAG |= sam.Duplicate
	assert.True(t, opts.Keep(aln))
}

func TestCountRegions(t *testing.T) {
	ref := fasta.Reference{"chr1": []byte("ACGAACNNNN")}
	known := intervals.Sites{"chr1": []intervals.Interval{{Start: 1, End: 2}}}
	args := recal.DefaultArguments()
	diag := recal.NewDiagnostics(nil, args.SanityCheckFrequency)

	for _, size := range []int32{1, 2, 3, DefaultWindowSize} {
		opts := DefaultOptions()
		opts.WindowSize = size
		regions, err := Regions(testAlignments(), ref, opts)
		require.NoError(t, err)
		counts, err := recal.CountCovariates(context.Background(), regions, known, &args, diag)
		require.NoError(t, err)
		assert.Equal(t, int64(5), counts.Counted.CountedSites)
		assert.Equal(t, int64(1), counts.Counted.SkippedSites)
		assert.Equal(t, int64(6), counts.Counted.CountedBases)
		assert.Equal(t, recal.RecalDatum{Observations: 6, Mismatches: 3}, counts.Table.Totals())
	}
}
