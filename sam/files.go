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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bam"
	bsam "github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"github.com/exascience/elrecal/internal"
	"github.com/exascience/elrecal/utils"
)

// Sam is the contents of a SAM/BAM file.
type Sam struct {
	// ReadGroups maps read group ids to upper-case platform names.
	ReadGroups map[string]string
	Alignments []*Alignment

	header *bsam.Header
}

var (
	rgTag = bsam.NewTag("RG")
	plTag = bsam.NewTag("PL")
	csTag = bsam.NewTag("CS")
	cqTag = bsam.NewTag("CQ")
)

func cigarOperation(t bsam.CigarOpType) byte {
	switch t {
	case bsam.CigarMatch:
		return 'M'
	case bsam.CigarInsertion:
		return 'I'
	case bsam.CigarDeletion:
		return 'D'
	case bsam.CigarSkipped:
		return 'N'
	case bsam.CigarSoftClipped:
		return 'S'
	case bsam.CigarHardClipped:
		return 'H'
	case bsam.CigarPadded:
		return 'P'
	case bsam.CigarEqual:
		return '='
	case bsam.CigarMismatch:
		return 'X'
	default:
		return '?'
	}
}

func stringTag(rec *bsam.Record, tag bsam.Tag) (string, error) {
	aux := rec.AuxFields.Get(tag)
	if aux == nil {
		return "", nil
	}
	value, ok := aux.Value().(string)
	if !ok {
		return "", errors.Errorf("value encoded by %v in %v isn't a string", tag, rec.Name)
	}
	return value, nil
}

// FromRecord converts a biogo record into an Alignment.
func FromRecord(rec *bsam.Record, readGroups map[string]string) (*Alignment, error) {
	aln := &Alignment{
		QNAME:  rec.Name,
		FLAG:   uint16(rec.Flags),
		POS:    int32(rec.Pos) + 1,
		MAPQ:   rec.MapQ,
		record: rec,
	}
	if rec.Ref != nil {
		aln.RNAME = utils.InternString(rec.Ref.Name())
	}
	aln.CIGAR = make([]CigarOperation, len(rec.Cigar))
	for i, co := range rec.Cigar {
		aln.CIGAR[i] = CigarOperation{Length: int32(co.Len()), Operation: cigarOperation(co.Type())}
	}
	aln.SEQ = rec.Seq.Expand()
	if len(rec.Qual) > 0 && rec.Qual[0] != 0xff {
		aln.QUAL = append([]byte(nil), rec.Qual...)
	}
	rg, err := stringTag(rec, rgTag)
	if err != nil {
		return nil, err
	}
	if rg != "" {
		aln.RG = utils.InternString(rg)
		aln.PL = readGroups[rg]
	}
	if aln.CS, err = stringTag(rec, csTag); err != nil {
		return nil, err
	}
	if aln.CQ, err = stringTag(rec, cqTag); err != nil {
		return nil, err
	}
	return aln, nil
}

// ToRecord returns a biogo record reflecting the current flags, bases
// and qualities of the alignment.
func (aln *Alignment) ToRecord() *bsam.Record {
	rec := *aln.record
	rec.Flags = bsam.Flags(aln.FLAG)
	rec.Seq = bsam.NewSeq(aln.SEQ)
	if aln.QUAL != nil {
		rec.Qual = aln.QUAL
	}
	return &rec
}

type recordReader interface {
	Read() (*bsam.Record, error)
}

func readAll(reader recordReader, header *bsam.Header, filename string) (*Sam, error) {
	s := &Sam{ReadGroups: make(map[string]string), header: header}
	for _, rg := range header.RGs() {
		s.ReadGroups[utils.InternString(rg.Name())] = strings.ToUpper(rg.Get(plTag))
	}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "while reading %v", filename)
		}
		aln, err := FromRecord(rec, s.ReadGroups)
		if err != nil {
			return nil, errors.Wrapf(err, "while reading %v", filename)
		}
		s.Alignments = append(s.Alignments, aln)
	}
	return s, nil
}

// Load reads a complete SAM or BAM file. The format is chosen by file
// extension. SAM files may be gzipped.
func Load(filename string) (s *Sam, err error) {
	pathname, err := internal.FullPathname(filename)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(filepath.Ext(pathname)) == ".bam" {
		var f *os.File
		if f, err = os.Open(pathname); err != nil {
			return nil, err
		}
		defer internal.Close(f, &err)
		var reader *bam.Reader
		if reader, err = bam.NewReader(f, 0); err != nil {
			return nil, errors.Wrapf(err, "while opening %v", filename)
		}
		defer internal.Close(reader, &err)
		return readAll(reader, reader.Header(), filename)
	}
	var input *xopen.Reader
	if input, err = xopen.Ropen(pathname); err != nil {
		return nil, err
	}
	defer internal.Close(input, &err)
	var reader *bsam.Reader
	if reader, err = bsam.NewReader(input); err != nil {
		return nil, errors.Wrapf(err, "while opening %v", filename)
	}
	return readAll(reader, reader.Header(), filename)
}

// WriteSam stores the alignments in a SAM file, gzipped if the
// filename ends in .gz.
func (s *Sam) WriteSam(filename string) (err error) {
	output, err := xopen.Wopen(filename)
	if err != nil {
		return err
	}
	defer internal.Close(output, &err)
	writer, err := bsam.NewWriter(output, s.header, bsam.FlagDecimal)
	if err != nil {
		return err
	}
	for _, aln := range s.Alignments {
		if err = writer.Write(aln.ToRecord()); err != nil {
			return errors.Wrapf(err, "while writing read %v", aln.QNAME)
		}
	}
	return nil
}
