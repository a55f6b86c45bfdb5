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
	"math"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/exascience/elrecal/internal"
	"github.com/exascience/elrecal/sam"
)

// ColorSpaceState is the processing state of a SOLiD read.
type ColorSpaceState int

// States of ColorSpaceRead.
const (
	Unprocessed ColorSpaceState = iota
	InconsistencyComputed
	Corrected
)

// ColorSpaceRead holds the color-space analysis of a SOLiD read. All
// slices and bit positions are in sequencing order.
type ColorSpaceRead struct {
	state        ColorSpaceState
	reversed     bool
	length       int
	impliedBases []byte
	inconsistent *bitset.BitSet
}

var colorOne, colorTwo, colorThree [256]byte

// The color tables accept bases in either case, and always produce
// upper-case bases.
func init() {
	for i := range colorOne {
		colorOne[i], colorTwo[i], colorThree[i] = byte(i), byte(i), byte(i)
	}
	setPairs := func(table *[256]byte, pairs ...string) {
		for _, pair := range pairs {
			table[pair[0]] = pair[1]
			table[pair[0]+'a'-'A'] = pair[1]
		}
	}
	setPairs(&colorOne, "AC", "CA", "GT", "TG")
	setPairs(&colorTwo, "AG", "GA", "CT", "TC")
	setPairs(&colorThree, "AT", "TA", "CG", "GC")
}

// nextBaseFromColor decodes the base that follows prev given the
// color between them. Bases other than A, C, G, T decode to
// themselves.
func nextBaseFromColor(prev, color byte) (byte, bool) {
	switch color {
	case '0':
		return prev, true
	case '1':
		return colorOne[prev], true
	case '2':
		return colorTwo[prev], true
	case '3':
		return colorThree[prev], true
	default:
		return 0, false
	}
}

const missingColorSpaceMsg = "Unable to find color space information in SOLiD read. This file can not be recalibrated without color space information because of potential reference bias"

// HasNoCallColors determines whether the CS tag of the read contains
// a color other than 0, 1, 2, or 3 after the primer base.
func HasNoCallColors(aln *sam.Alignment) bool {
	if len(aln.CS) < 2 {
		return false
	}
	for _, color := range []byte(aln.CS[1:]) {
		if color < '0' || color > '3' {
			return true
		}
	}
	return false
}

// ParseColorSpace decodes the CS tag of a SOLiD read and determines
// which bases are inconsistent with the color decoded from the
// previous base.
func ParseColorSpace(aln *sam.Alignment) (*ColorSpaceRead, error) {
	cs := aln.CS
	if cs == "" {
		return nil, readErrorf(aln, missingColorSpaceMsg)
	}
	n := len(aln.SEQ)
	if len(cs) < n+1 {
		return nil, readErrorf(aln, "Malformed color space tag %v with %v colors for %v bases", cs, len(cs)-1, n)
	}
	bases, _ := sequencingOrder(aln)
	result := &ColorSpaceRead{
		reversed:     aln.IsReversed(),
		length:       n,
		impliedBases: make([]byte, n),
		inconsistent: bitset.New(uint(n)),
	}
	prev := cs[0]
	for i := 0; i < n; i++ {
		base, ok := nextBaseFromColor(prev, cs[i+1])
		if !ok {
			return nil, readErrorf(aln, "Unrecognized color space in SOLiD read, color = %c. This file can not be recalibrated without full color space information because of potential reference bias", cs[i+1])
		}
		result.impliedBases[i] = base
		if base != bases[i] {
			result.inconsistent.Set(uint(i))
		}
		prev = bases[i]
	}
	result.state = InconsistencyComputed
	return result, nil
}

// State returns the current processing state.
func (cs *ColorSpaceRead) State() ColorSpaceState {
	return cs.state
}

// IsInconsistent determines whether the base at the given offset, in
// alignment order, disagrees with the color space.
func (cs *ColorSpaceRead) IsInconsistent(offset int) bool {
	if cs.reversed {
		offset = cs.length - 1 - offset
	}
	return cs.inconsistent.Test(uint(offset))
}

// Inconsistencies returns the number of inconsistent bases.
func (cs *ColorSpaceRead) Inconsistencies() int {
	return int(cs.inconsistent.Count())
}

func (cs *ColorSpaceRead) stored(k int) int {
	if cs.reversed {
		return cs.length - 1 - k
	}
	return k
}

// A Coin makes weighted random decisions.
type Coin interface {
	// Flip returns true with probability p.
	Flip(p float64) bool
}

type bernoulliCoin struct {
	src rand.Source
}

func (c bernoulliCoin) Flip(p float64) bool {
	return distuv.Bernoulli{P: p, Src: c.src}.Rand() == 1
}

// NewCoin returns a coin with its own random source.
func NewCoin(seed uint64) Coin {
	return bernoulliCoin{src: rand.NewSource(seed)}
}

// NewReadCoin returns a coin whose flips only depend on the seed and
// the identity of the read, not on the order in which reads are
// processed.
func NewReadCoin(seed uint64, aln *sam.Alignment) Coin {
	h := internal.StringHashWithSeed(aln.QNAME, seed)
	h = internal.CombineHashes(h, uint64(aln.FLAG)<<32|uint64(uint32(aln.POS)))
	return NewCoin(h)
}

// Correct applies the given correction mode to the bases and qualities
// of the read. refBases holds the reference base aligned to every read
// base in alignment order, see sam.Alignment.AlignedReferenceBases.
// Correcting an already corrected read has no effect.
func (cs *ColorSpaceRead) Correct(aln *sam.Alignment, refBases []byte, mode SolidRecalMode, coin Coin) error {
	if cs.state == Corrected {
		return nil
	}
	if len(refBases) != cs.length || len(aln.SEQ) != cs.length {
		return readErrorf(aln, "%v reference bases for %v read bases", len(refBases), len(aln.SEQ))
	}
	switch mode {
	case DoNothing:
	case SetQZero, SetQZeroBaseN:
		cs.setQZero(aln, refBases, mode == SetQZeroBaseN)
	case RemoveRefBias:
		if err := cs.removeRefBias(aln, refBases, coin); err != nil {
			return err
		}
	default:
		return configErrorf("unknown SOLiD recalibration mode %v", mode)
	}
	cs.state = Corrected
	return nil
}

// setQZero gives every inconsistent base and the base before it
// quality 0, but only where the read still agrees with the reference.
func (cs *ColorSpaceRead) setQZero(aln *sam.Alignment, refBases []byte, setBaseN bool) {
	for i := 1; i < cs.length; i++ {
		if !cs.inconsistent.Test(uint(i)) {
			continue
		}
		for _, k := range [2]int{i, i - 1} {
			j := cs.stored(k)
			if aln.SEQ[j] != refBases[j] {
				continue
			}
			if j < len(aln.QUAL) {
				aln.QUAL[j] = 0
			}
			if setBaseN {
				aln.SEQ[j] = 'N'
			}
		}
	}
}

// removeRefBias lets the color-implied base compete with a reference
// base at inconsistent positions. The implied base is supported by the
// color quality at the same position, the reference base by the next
// one. The higher quality wins with a probability that grows
// exponentially with the quality difference.
func (cs *ColorSpaceRead) removeRefBias(aln *sam.Alignment, refBases []byte, coin Coin) error {
	if aln.CQ == "" {
		return readErrorf(aln, "REMOVE_REF_BIAS recal mode requires color space qualities but they can't be found")
	}
	if len(aln.CQ) < cs.length {
		return readErrorf(aln, "Malformed color space quality tag with %v qualities for %v bases", len(aln.CQ), cs.length)
	}
	cq := aln.CQ
	for i := 1; i < cs.length-1; i++ {
		if !cs.inconsistent.Test(uint(i)) {
			continue
		}
		for k := i - 1; k <= i; k++ {
			if k != i && cs.inconsistent.Test(uint(k)) {
				continue
			}
			j := cs.stored(k)
			if aln.SEQ[j] != refBases[j] {
				continue
			}
			implied := cs.impliedBases[k]
			if cs.reversed {
				implied = complement(implied)
			}
			if coin.Flip(impliedBaseProbability(int(cq[k])-33, int(cq[k+1])-33)) {
				aln.SEQ[j] = implied
			}
		}
	}
	return nil
}

// impliedBaseProbability is the probability that a base supported by
// color quality qImplied wins against one supported by qRef.
func impliedBaseProbability(qImplied, qRef int) float64 {
	if qImplied == qRef {
		return 0.5
	}
	maxQ, minQ := qImplied, qRef
	if maxQ < minQ {
		maxQ, minQ = minQ, maxQ
	}
	diff := maxQ - minQ
	numLow := minQ
	if numLow == 0 {
		numLow++
		diff++
	}
	numHigh := math.Round(float64(numLow) * math.Pow(10, float64(diff)/10))
	high := numHigh / (float64(numLow) + numHigh)
	if qImplied == maxQ {
		return high
	}
	return 1 - high
}
