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

func testRead(seq string, flag uint16, platform string) *Read {
	quals := make([]byte, len(seq))
	for i := range quals {
		quals[i] = 30
	}
	return &Read{
		Alignment: &sam.Alignment{
			QNAME: "read",
			FLAG:  flag,
			RNAME: "chr1",
			POS:   1,
			MAPQ:  60,
			CIGAR: []sam.CigarOperation{{Length: int32(len(seq)), Operation: 'M'}},
			SEQ:   []byte(seq),
			QUAL:  quals,
		},
		ReadGroup: "rg1",
		Platform:  platform,
	}
}

func covariateValues(t *testing.T, c Covariate, read *Read) []int32 {
	values := make([]int32, len(read.SEQ))
	require.NoError(t, c.Values(read, values))
	return values
}

func TestCycleCovariate(t *testing.T) {
	c := cycleCovariate{maxCycle: 500}
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, covariateValues(t, c, testRead("ACGTA", 0, "ILLUMINA")))
	assert.Equal(t, []int32{5, 4, 3, 2, 1}, covariateValues(t, c, testRead("ACGTA", sam.Reversed, "ILLUMINA")))
	assert.Equal(t, []int32{-1, -2, -3, -4, -5}, covariateValues(t, c, testRead("ACGTA", sam.Multiple|sam.Last, "ILLUMINA")))
	assert.Equal(t, []int32{-5, -4, -3, -2, -1}, covariateValues(t, c, testRead("ACGTA", sam.Multiple|sam.Last|sam.Reversed, "SOLID")))
	assert.Equal(t, []int32{1, 2, 3}, covariateValues(t, c, testRead("ACG", sam.Multiple|sam.First, "ABI_SOLID")))

	assert.Equal(t, []int32{1, 1, 2, 3, 3}, covariateValues(t, c, testRead("AACGG", 0, "LS454")))
	assert.Equal(t, []int32{3, 3, 2, 1, 1}, covariateValues(t, c, testRead("AACGG", sam.Reversed, "LS454")))

	values := make([]int32, 5)
	err := c.Values(testRead("ACGTA", 0, "FOO"), values)
	assert.True(t, IsConfigError(err))

	err = cycleCovariate{maxCycle: 3}.Values(testRead("ACGTA", 0, "ILLUMINA"), values)
	assert.True(t, IsReadError(err))
}

func TestDinucCovariate(t *testing.T) {
	c := dinucCovariate{}
	values := covariateValues(t, c, testRead("ACGT", 0, "ILLUMINA"))
	assert.Equal(t, []int32{NoValue, 1, 6, 11}, values)
	assert.Equal(t, "AC", c.Format(values[1]))
	assert.Equal(t, "GT", c.Format(values[3]))

	assert.Equal(t, []int32{11, 6, 1, NoValue}, covariateValues(t, c, testRead("ACGT", sam.Reversed, "ILLUMINA")))
	assert.Equal(t, []int32{NoValue, NoValue, NoValue}, covariateValues(t, c, testRead("ANC", 0, "ILLUMINA")))
}

func formatAll(c Covariate, values []int32) []string {
	result := make([]string, len(values))
	for i, value := range values {
		if value == NoValue {
			result[i] = "null"
		} else {
			result[i] = c.Format(value)
		}
	}
	return result
}

func TestContextCovariate(t *testing.T) {
	c := contextCovariate{size: 2, lowQualityTail: 2}
	read := testRead("ACGT", 0, "ILLUMINA")
	assert.Equal(t, []string{"null", "AC", "CG", "GT"}, formatAll(c, covariateValues(t, c, read)))

	read.QUAL[1] = 2
	assert.Equal(t, []string{"null", "null", "null", "GT"}, formatAll(c, covariateValues(t, c, read)))

	read = testRead("ACGT", sam.Reversed, "ILLUMINA")
	assert.Equal(t, []string{"GT", "CG", "AC", "null"}, formatAll(c, covariateValues(t, c, read)))

	c = contextCovariate{size: 3, lowQualityTail: 2}
	assert.Equal(t, []string{"null", "null", "ACG", "CGT"}, formatAll(c, covariateValues(t, c, testRead("ACGT", 0, "ILLUMINA"))))
}

func TestOtherCovariates(t *testing.T) {
	read := testRead("AAAC", 0, "ILLUMINA")
	assert.Equal(t, []int32{0, 1, 2, 0}, covariateValues(t, homopolymerCovariate{}, read))
	assert.Equal(t, []int32{60, 60, 60, 60}, covariateValues(t, mappingQualityCovariate{}, read))
	assert.Equal(t, []int32{0, 1, 2, 3}, covariateValues(t, positionCovariate{}, read))

	read = testRead("AAAC", sam.Reversed, "ILLUMINA")
	assert.Equal(t, []int32{3, 2, 1, 0}, covariateValues(t, positionCovariate{}, read))
	assert.Equal(t, []int32{2, 1, 0, 0}, covariateValues(t, homopolymerCovariate{}, read))
}

func TestNewCovariates(t *testing.T) {
	args := DefaultArguments()
	covariates, err := NewCovariates(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{"CycleCovariate", "DinucCovariate"}, OptionalCovariateNames(covariates))
	assert.Equal(t, []string{ReadGroupCovariateName, QualityScoreCovariateName, "CycleCovariate", "DinucCovariate"}, CovariateNames(covariates))

	args.Covariates = []string{"context", "ReadGroup", "cyclecovariate", "MappingQualityCovariate"}
	covariates, err = NewCovariates(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{"CycleCovariate", "DinucCovariate", "ContextCovariate", "MappingQualityCovariate"}, OptionalCovariateNames(covariates))

	args.StandardCovariates = false
	args.Covariates = []string{"Homopolymer"}
	covariates, err = NewCovariates(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{"HomopolymerCovariate"}, OptionalCovariateNames(covariates))

	args.Covariates = []string{"Foo"}
	_, err = NewCovariates(&args)
	assert.True(t, IsConfigError(err))

	names := ListCovariates()
	assert.Len(t, names, 2+len(covariateRegistry))
	assert.Equal(t, ReadGroupCovariateName, names[0])
	assert.Equal(t, QualityScoreCovariateName, names[1])
}

func TestValidate(t *testing.T) {
	args := DefaultArguments()
	assert.NoError(t, args.Validate())

	args.SolidRecalMode = "FOO"
	assert.True(t, IsConfigError(args.Validate()))

	args = DefaultArguments()
	args.MismatchesContextSize = maxContextSize + 1
	assert.True(t, IsConfigError(args.Validate()))
}
