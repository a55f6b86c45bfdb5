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

// Package fasta loads reference sequences for covariate counting.
package fasta

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/exascience/elrecal/utils"
)

var upperTable [256]byte

func init() {
	for i := range upperTable {
		upperTable[i] = 'N'
	}
	for _, b := range []byte("ACGT") {
		upperTable[b] = b
		upperTable[b+'a'-'A'] = b
	}
}

// ToUpperN maps a, c, g, t to upper case, and every other base,
// including IUPAC ambiguity codes, to N.
func ToUpperN(base byte) byte {
	return upperTable[base]
}

// Reference maps contig names to normalized sequences.
type Reference map[string][]byte

// Base returns the reference base at the 0-based position pos, or 'N'
// when the contig or position is unknown.
func (ref Reference) Base(contig string, pos int32) byte {
	s := ref[contig]
	if pos < 0 || int(pos) >= len(s) {
		return 'N'
	}
	return s[pos]
}

// Slice returns the reference bases in [start, end), clipped to the
// contig.
func (ref Reference) Slice(contig string, start, end int32) []byte {
	s := ref[contig]
	if start < 0 {
		start = 0
	}
	if int(end) > len(s) {
		end = int32(len(s))
	}
	if start >= end {
		return nil
	}
	return s[start:end]
}

// Load reads a (possibly gzipped) FASTA file. Contig names are cut at
// the first whitespace.
func Load(filename string) (Reference, error) {
	pathname, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	seq.ValidateSeq = false
	reader, err := fastx.NewDefaultReader(pathname)
	if err != nil {
		return nil, errors.Wrapf(err, "while opening reference %v", filename)
	}
	ref := make(Reference)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "while reading reference %v", filename)
		}
		fields := strings.Fields(string(rec.Name))
		if len(fields) == 0 {
			return nil, errors.Errorf("reference %v contains a sequence without name", filename)
		}
		bases := make([]byte, len(rec.Seq.Seq))
		for i, b := range rec.Seq.Seq {
			bases[i] = upperTable[b]
		}
		ref[utils.InternString(fields[0])] = bases
	}
	if len(ref) == 0 {
		return nil, errors.Errorf("reference %v contains no sequences", filename)
	}
	return ref, nil
}
