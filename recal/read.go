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
	"strings"
	"sync"

	psync "github.com/exascience/pargo/sync"

	"github.com/exascience/elrecal/internal"
	"github.com/exascience/elrecal/sam"
)

// A Read is an alignment with its read group and platform resolved
// against the default and force arguments. Platform is upper case.
type Read struct {
	*sam.Alignment
	ReadGroup string
	Platform  string
}

// IsSolid determines whether the resolved platform is SOLiD.
func (read *Read) IsSolid() bool {
	return sam.IsSolidPlatform(read.Platform)
}

// ResolveRead determines the read group and platform of a read. A
// forced value always wins; a default value is only used when the read
// has none. Without a default, a missing value is a fatal error.
func ResolveRead(aln *sam.Alignment, args *Arguments, diag *Diagnostics) (*Read, error) {
	read := &Read{Alignment: aln, ReadGroup: aln.RG, Platform: aln.PL}
	if args.ForceReadGroup != "" {
		read.ReadGroup = args.ForceReadGroup
		diag.WarnOncef("forceReadGroup", "Forcing read group ID = %v for all reads", args.ForceReadGroup)
	}
	if read.ReadGroup == "" {
		if args.DefaultReadGroup == "" {
			return nil, readErrorf(aln, "The input file contains reads with no read group. Please specify a default read group or add read groups to the input")
		}
		read.ReadGroup = args.DefaultReadGroup
		diag.WarnOncef("defaultReadGroup", "The input file contains reads with no read group. Defaulting to read group ID = %v. First observed at read with name = %v", args.DefaultReadGroup, aln.QNAME)
	}
	if args.ForcePlatform != "" {
		read.Platform = args.ForcePlatform
		diag.WarnOncef("forcePlatform", "Forcing platform = %v for all reads", args.ForcePlatform)
	}
	if read.Platform == "" {
		if args.DefaultPlatform == "" {
			return nil, readErrorf(aln, "The input file contains reads with no platform information. Please specify a default platform or add platform information to the read groups")
		}
		read.Platform = args.DefaultPlatform
		diag.WarnOncef("defaultPlatform", "The input file contains reads with no platform information. Defaulting to platform = %v. First observed at read with name = %v", args.DefaultPlatform, aln.QNAME)
	}
	read.Platform = strings.ToUpper(read.Platform)
	return read, nil
}

// ReadContext is the state of a read that is computed once, by the
// first worker that encounters the read.
type ReadContext struct {
	once sync.Once
	err  error

	Read *Read
	// Skip is set for reads that must not be counted.
	Skip bool
	// ColorSpace is nil for reads that are not SOLiD reads.
	ColorSpace *ColorSpaceRead
	// Keys holds the covariate key of every base, in alignment order.
	Keys []Key
}

type readKey struct {
	aln *sam.Alignment
}

func (key readKey) Hash() uint64 {
	aln := key.aln
	return internal.StringHash(aln.QNAME) ^ uint64(aln.POS) ^ internal.BoolHash(aln.IsReversed())
}

// ReadContexts is a concurrent side table from alignments to their
// ReadContext.
type ReadContexts struct {
	table      *psync.Map
	covariates []Covariate
	args       *Arguments
	diag       *Diagnostics
}

// NewReadContexts returns an empty side table.
func NewReadContexts(covariates []Covariate, args *Arguments, diag *Diagnostics) *ReadContexts {
	return &ReadContexts{
		table:      psync.NewMap(0),
		covariates: covariates,
		args:       args,
		diag:       diag,
	}
}

// Get returns the context of the given alignment, computing it if
// this is the first request for it.
func (contexts *ReadContexts) Get(aln *sam.Alignment) (*ReadContext, error) {
	key := readKey{aln}
	value, ok := contexts.table.Load(key)
	if !ok {
		value, _ = contexts.table.LoadOrStore(key, new(ReadContext))
	}
	ctx := value.(*ReadContext)
	ctx.once.Do(func() {
		ctx.err = contexts.initialize(ctx, aln)
	})
	return ctx, ctx.err
}

// Release removes the context of the given alignment.
func (contexts *ReadContexts) Release(aln *sam.Alignment) {
	contexts.table.Delete(readKey{aln})
}

// checkNoCalls applies the no-call strategy to a SOLiD read. skip is
// set when the read must not be recalibrated, purge when it must be
// dropped altogether.
func checkNoCalls(aln *sam.Alignment, args *Arguments, diag *Diagnostics) (skip, purge bool, err error) {
	if !HasNoCallColors(aln) {
		return false, false, nil
	}
	switch args.SolidNocallStrategy {
	case LeaveReadUnrecalibrated:
		return true, false, nil
	case PurgeRead:
		diag.countPurgedRead()
		return true, true, nil
	default:
		return false, false, readErrorf(aln, "Bad color space found in SOLiD read %v. Use the no-call strategy LEAVE_READ_UNRECALIBRATED or PURGE_READ to skip such reads", aln.CS)
	}
}

func (contexts *ReadContexts) initialize(ctx *ReadContext, aln *sam.Alignment) error {
	read, err := ResolveRead(aln, contexts.args, contexts.diag)
	if err != nil {
		return err
	}
	ctx.Read = read
	if read.IsSolid() {
		if aln.CS == "" {
			return readErrorf(aln, missingColorSpaceMsg)
		}
		if ctx.Skip, _, err = checkNoCalls(aln, contexts.args, contexts.diag); err != nil || ctx.Skip {
			return err
		}
		if ctx.ColorSpace, err = ParseColorSpace(aln); err != nil {
			return err
		}
	}
	n := len(aln.SEQ)
	if len(aln.QUAL) != n {
		ctx.Skip = true
		return nil
	}
	ctx.Keys = make([]Key, n)
	for i := range ctx.Keys {
		ctx.Keys[i] = NewKey(read.ReadGroup, aln.QUAL[i])
	}
	values := make([]int32, n)
	for j, covariate := range contexts.covariates {
		if err := covariate.Values(read, values); err != nil {
			return err
		}
		for i, value := range values {
			ctx.Keys[i].Values[j] = value
		}
	}
	return nil
}
