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
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elrecal/sam"
)

func testDiagnostics() (*Diagnostics, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewDiagnostics(log.New(&buf, "", 0), 1000000), &buf
}

func TestResolveRead(t *testing.T) {
	diag, buf := testDiagnostics()
	args := DefaultArguments()
	aln := &sam.Alignment{QNAME: "r1", RG: "rg1", PL: "illumina"}
	read, err := ResolveRead(aln, &args, diag)
	require.NoError(t, err)
	assert.Equal(t, "rg1", read.ReadGroup)
	assert.Equal(t, "ILLUMINA", read.Platform)
	assert.Equal(t, 0, diag.Warnings())

	_, err = ResolveRead(&sam.Alignment{QNAME: "r2", PL: "illumina"}, &args, diag)
	assert.True(t, IsReadError(err))
	_, err = ResolveRead(&sam.Alignment{QNAME: "r3", RG: "rg1"}, &args, diag)
	assert.True(t, IsReadError(err))

	args.DefaultReadGroup = "dflt"
	args.DefaultPlatform = "solid"
	read, err = ResolveRead(&sam.Alignment{QNAME: "r4"}, &args, diag)
	require.NoError(t, err)
	assert.Equal(t, "dflt", read.ReadGroup)
	assert.True(t, read.IsSolid())
	assert.Equal(t, 2, diag.Warnings())
	_, err = ResolveRead(&sam.Alignment{QNAME: "r5"}, &args, diag)
	require.NoError(t, err)
	assert.Equal(t, 2, diag.Warnings(), "default warnings are only logged once")
	assert.Contains(t, buf.String(), "r4")
	assert.NotContains(t, buf.String(), "r5")

	args.ForceReadGroup = "forced"
	args.ForcePlatform = "LS454"
	read, err = ResolveRead(aln, &args, diag)
	require.NoError(t, err)
	assert.Equal(t, "forced", read.ReadGroup)
	assert.Equal(t, "LS454", read.Platform)
}

func TestReadContexts(t *testing.T) {
	diag, _ := testDiagnostics()
	args := DefaultArguments()
	covariates, err := NewCovariates(&args)
	require.NoError(t, err)
	contexts := NewReadContexts(covariates, &args, diag)

	aln := testRead("ACGT", 0, "ILLUMINA").Alignment
	aln.RG, aln.PL = "rg1", "ILLUMINA"
	ctx, err := contexts.Get(aln)
	require.NoError(t, err)
	assert.False(t, ctx.Skip)
	assert.Nil(t, ctx.ColorSpace)
	require.Len(t, ctx.Keys, 4)
	assert.Equal(t, "rg1", ctx.Keys[0].ReadGroup)
	assert.Equal(t, uint8(30), ctx.Keys[0].Qual)
	assert.Equal(t, int32(1), ctx.Keys[0].Values[0])
	assert.Equal(t, NoValue, ctx.Keys[0].Values[1])
	assert.Equal(t, int32(4), ctx.Keys[3].Values[0])
	assert.Equal(t, NoValue, ctx.Keys[3].Values[2])

	again, err := contexts.Get(aln)
	require.NoError(t, err)
	assert.True(t, ctx == again)
	contexts.Release(aln)
	again, err = contexts.Get(aln)
	require.NoError(t, err)
	assert.False(t, ctx == again)

	solid, err := contexts.Get(solidRead(0, "T3101"))
	require.NoError(t, err)
	require.NotNil(t, solid.ColorSpace)
	assert.True(t, solid.ColorSpace.IsInconsistent(2))

	_, err = contexts.Get(solidRead(0, ""))
	assert.True(t, IsReadError(err))
}

func TestNoCallStrategies(t *testing.T) {
	for _, strategy := range []SolidNocallStrategy{ThrowException, LeaveReadUnrecalibrated, PurgeRead} {
		diag, _ := testDiagnostics()
		args := DefaultArguments()
		args.SolidNocallStrategy = strategy
		covariates, err := NewCovariates(&args)
		require.NoError(t, err)
		contexts := NewReadContexts(covariates, &args, diag)
		ctx, err := contexts.Get(solidRead(0, "T31.1"))
		switch strategy {
		case ThrowException:
			assert.True(t, IsReadError(err))
		case LeaveReadUnrecalibrated:
			require.NoError(t, err)
			assert.True(t, ctx.Skip)
			assert.Equal(t, 0, diag.PurgedReads())
		case PurgeRead:
			require.NoError(t, err)
			assert.True(t, ctx.Skip)
			assert.Equal(t, 1, diag.PurgedReads())
		}
	}
}

func TestDiagnosticsBackOff(t *testing.T) {
	diag, _ := testDiagnostics()
	diag = NewDiagnostics(diag.Logger, 2)
	diag.BackOff(2)
	assert.Equal(t, int64(4), diag.CheckFrequency())
	diag.BackOff(2)
	assert.Equal(t, int64(4), diag.CheckFrequency(), "stale back-offs are ignored")
}
