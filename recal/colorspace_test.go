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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elrecal/sam"
)

// The colors T3131 encode ACGT after primer base T. T3101 makes the
// third base inconsistent.
func solidRead(flag uint16, cs string) *sam.Alignment {
	return &sam.Alignment{
		QNAME: "solid",
		FLAG:  flag,
		RNAME: "chr1",
		POS:   1,
		MAPQ:  60,
		CIGAR: []sam.CigarOperation{{Length: 4, Operation: 'M'}},
		SEQ:   []byte("ACGT"),
		QUAL:  []byte{30, 30, 30, 30},
		RG:    "rg1",
		PL:    "SOLID",
		CS:    cs,
		CQ:    "5555",
	}
}

type stubCoin struct {
	result bool
	probs  []float64
}

func (c *stubCoin) Flip(p float64) bool {
	c.probs = append(c.probs, p)
	return c.result
}

func TestNextBaseFromColor(t *testing.T) {
	for _, tc := range []struct {
		prev, color, next byte
	}{
		{'A', '0', 'A'}, {'A', '1', 'C'}, {'A', '2', 'G'}, {'A', '3', 'T'},
		{'G', '1', 'T'}, {'T', '2', 'C'}, {'C', '3', 'G'},
		{'a', '1', 'C'}, {'c', '2', 'T'}, {'g', '3', 'C'}, {'t', '1', 'G'},
		{'a', '0', 'a'}, {'N', '2', 'N'},
	} {
		next, ok := nextBaseFromColor(tc.prev, tc.color)
		assert.True(t, ok)
		assert.Equal(t, string(tc.next), string(next), "%c + %c", tc.prev, tc.color)
	}
	_, ok := nextBaseFromColor('A', '.')
	assert.False(t, ok)
}

func TestParseColorSpace(t *testing.T) {
	cs, err := ParseColorSpace(solidRead(0, "T3131"))
	require.NoError(t, err)
	assert.Equal(t, InconsistencyComputed, cs.State())
	assert.Equal(t, 0, cs.Inconsistencies())

	cs, err = ParseColorSpace(solidRead(0, "T3101"))
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Inconsistencies())
	assert.True(t, cs.IsInconsistent(2))
	assert.False(t, cs.IsInconsistent(1))

	// ACGT is its own reverse complement, so the same colors apply.
	cs, err = ParseColorSpace(solidRead(sam.Reversed, "T3101"))
	require.NoError(t, err)
	assert.True(t, cs.IsInconsistent(1))
	assert.False(t, cs.IsInconsistent(2))

	_, err = ParseColorSpace(solidRead(0, ""))
	assert.True(t, IsReadError(err))
	_, err = ParseColorSpace(solidRead(0, "T31"))
	assert.True(t, IsReadError(err))
	_, err = ParseColorSpace(solidRead(0, "T31x1"))
	assert.True(t, IsReadError(err))

	assert.True(t, HasNoCallColors(solidRead(0, "T31.1")))
	assert.False(t, HasNoCallColors(solidRead(0, "T3131")))
}

func TestSetQZero(t *testing.T) {
	aln := solidRead(0, "T3101")
	cs, err := ParseColorSpace(aln)
	require.NoError(t, err)
	require.NoError(t, cs.Correct(aln, []byte("ACGT"), SetQZero, nil))
	assert.Equal(t, []byte{30, 0, 0, 30}, aln.QUAL)
	assert.Equal(t, []byte("ACGT"), aln.SEQ)
	assert.Equal(t, Corrected, cs.State())

	aln = solidRead(0, "T3101")
	cs, err = ParseColorSpace(aln)
	require.NoError(t, err)
	require.NoError(t, cs.Correct(aln, []byte("ACAT"), SetQZeroBaseN, nil))
	assert.Equal(t, []byte{30, 0, 30, 30}, aln.QUAL)
	assert.Equal(t, []byte("ANGT"), aln.SEQ)

	aln = solidRead(0, "T3101")
	cs, err = ParseColorSpace(aln)
	require.NoError(t, err)
	require.NoError(t, cs.Correct(aln, []byte("ACGT"), DoNothing, nil))
	assert.Equal(t, []byte{30, 30, 30, 30}, aln.QUAL)

	err = cs.Correct(aln, []byte("ACG"), SetQZero, nil)
	assert.NoError(t, err, "corrected reads are left alone")
}

func TestRemoveRefBias(t *testing.T) {
	aln := solidRead(0, "T3101")
	cs, err := ParseColorSpace(aln)
	require.NoError(t, err)
	coin := &stubCoin{result: true}
	require.NoError(t, cs.Correct(aln, []byte("ACGT"), RemoveRefBias, coin))
	assert.Equal(t, []byte("ACCT"), aln.SEQ)
	assert.Equal(t, []float64{0.5, 0.5}, coin.probs)

	aln = solidRead(0, "T3101")
	cs, err = ParseColorSpace(aln)
	require.NoError(t, err)
	require.NoError(t, cs.Correct(aln, []byte("ACGT"), RemoveRefBias, &stubCoin{result: false}))
	assert.Equal(t, []byte("ACGT"), aln.SEQ)

	aln = solidRead(0, "T3101")
	aln.CQ = ""
	cs, err = ParseColorSpace(aln)
	require.NoError(t, err)
	err = cs.Correct(aln, []byte("ACGT"), RemoveRefBias, &stubCoin{})
	assert.True(t, IsReadError(err))

	aln = solidRead(0, "T3101")
	cs, err = ParseColorSpace(aln)
	require.NoError(t, err)
	err = cs.Correct(aln, []byte("ACG"), SetQZero, nil)
	assert.True(t, IsReadError(err))
}

func TestImpliedBaseProbability(t *testing.T) {
	assert.Equal(t, 0.5, impliedBaseProbability(10, 10))
	assert.Equal(t, 0.5, impliedBaseProbability(0, 0))
	assert.InDelta(t, 100.0/110.0, impliedBaseProbability(20, 10), 1e-12)
	for _, q := range [][2]int{{20, 10}, {3, 0}, {0, 17}, {40, 39}} {
		p := impliedBaseProbability(q[0], q[1])
		assert.InDelta(t, 1.0, p+impliedBaseProbability(q[1], q[0]), 1e-12)
		assert.True(t, p > 0 && p < 1)
	}
	assert.True(t, impliedBaseProbability(30, 10) > impliedBaseProbability(20, 10))
}

func TestReadCoin(t *testing.T) {
	flips := func(seed uint64, aln *sam.Alignment) (result []bool) {
		coin := NewReadCoin(seed, aln)
		for i := 0; i < 32; i++ {
			result = append(result, coin.Flip(0.5))
		}
		return result
	}
	aln := solidRead(0, "T3101")
	assert.Equal(t, flips(42, aln), flips(42, aln))

	coin := NewCoin(1)
	for i := 0; i < 10; i++ {
		assert.True(t, coin.Flip(1))
		assert.False(t, coin.Flip(0))
	}
}

func TestCorrectRead(t *testing.T) {
	diag, _ := testDiagnostics()
	args := DefaultArguments()
	ref := []byte("ACGTTTTT")

	aln := solidRead(0, "T3101")
	require.NoError(t, CorrectRead(aln, ref, &args, diag))
	assert.Equal(t, []byte{30, 0, 0, 30}, aln.QUAL)
	assert.False(t, aln.IsQCFailed())

	aln = solidRead(0, "T3101")
	aln.PL = "ILLUMINA"
	require.NoError(t, CorrectRead(aln, ref, &args, diag))
	assert.Equal(t, []byte{30, 30, 30, 30}, aln.QUAL)

	args.SolidNocallStrategy = PurgeRead
	aln = solidRead(0, "T3.01")
	require.NoError(t, CorrectRead(aln, ref, &args, diag))
	assert.True(t, aln.IsQCFailed())
	assert.Equal(t, uint16(sam.QCFailed), aln.FLAG)
	assert.Equal(t, []byte{30, 30, 30, 30}, aln.QUAL)
	assert.Equal(t, 1, diag.PurgedReads())

	args.SolidNocallStrategy = LeaveReadUnrecalibrated
	aln = solidRead(0, "T3.01")
	require.NoError(t, CorrectRead(aln, ref, &args, diag))
	assert.Equal(t, []byte{30, 30, 30, 30}, aln.QUAL)
	assert.False(t, aln.IsQCFailed())

	args.SolidNocallStrategy = ThrowException
	assert.True(t, IsReadError(CorrectRead(solidRead(0, "T3.01"), ref, &args, diag)))

	args.SolidRecalMode = RemoveRefBias
	args.Seed = 7
	first, second := solidRead(0, "T3101"), solidRead(0, "T3101")
	require.NoError(t, CorrectRead(first, ref, &args, diag))
	require.NoError(t, CorrectRead(second, ref, &args, diag))
	assert.Equal(t, first.SEQ, second.SEQ)
}
