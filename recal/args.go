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
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SolidRecalMode selects how SOLiD color-space inconsistencies are
// corrected.
type SolidRecalMode string

// Supported SOLiD correction modes.
const (
	DoNothing     SolidRecalMode = "DO_NOTHING"
	SetQZero      SolidRecalMode = "SET_Q_ZERO"
	SetQZeroBaseN SolidRecalMode = "SET_Q_ZERO_BASE_N"
	RemoveRefBias SolidRecalMode = "REMOVE_REF_BIAS"
)

// SolidNocallStrategy selects what happens to SOLiD reads with no-call
// colors.
type SolidNocallStrategy string

// Supported no-call strategies.
const (
	ThrowException          SolidNocallStrategy = "THROW_EXCEPTION"
	LeaveReadUnrecalibrated SolidNocallStrategy = "LEAVE_READ_UNRECALIBRATED"
	PurgeRead               SolidNocallStrategy = "PURGE_READ"
)

// Arguments are the options of a covariate counting run.
type Arguments struct {
	// Covariates names the optional covariates to use, in order.
	Covariates []string `yaml:"covariates"`
	// StandardCovariates adds the standard covariates.
	StandardCovariates bool `yaml:"standard_covs"`

	RunWithoutKnownSites bool `yaml:"run_without_known_sites"`

	SolidRecalMode      SolidRecalMode      `yaml:"solid_recal_mode"`
	SolidNocallStrategy SolidNocallStrategy `yaml:"solid_nocall_strategy"`

	MismatchesContextSize int   `yaml:"mismatches_context_size"`
	MaximumCycleValue     int   `yaml:"maximum_cycle_value"`
	LowQualityTail        uint8 `yaml:"low_quality_tail"`

	DefaultReadGroup string `yaml:"default_read_group"`
	DefaultPlatform  string `yaml:"default_platform"`
	ForceReadGroup   string `yaml:"force_read_group"`
	ForcePlatform    string `yaml:"force_platform"`

	// Smoothing and MaxQuality parameterize the empirical qualities in
	// the report.
	Smoothing  int     `yaml:"smoothing"`
	MaxQuality float64 `yaml:"max_quality"`

	// SanityCheckFrequency is the initial number of loci between two
	// known-site sanity checks.
	SanityCheckFrequency int `yaml:"sanity_check_frequency"`
	// KnownSiteMismatchRatio is the minimum expected ratio between the
	// known-site and the novel-site mismatch rates.
	KnownSiteMismatchRatio float64 `yaml:"known_site_mismatch_ratio"`

	// Seed drives the coin flips of REMOVE_REF_BIAS.
	Seed uint64 `yaml:"seed"`
}

// DefaultArguments returns the default options.
func DefaultArguments() Arguments {
	return Arguments{
		StandardCovariates:     true,
		SolidRecalMode:         SetQZero,
		SolidNocallStrategy:    ThrowException,
		MismatchesContextSize:  2,
		MaximumCycleValue:      500,
		LowQualityTail:         2,
		Smoothing:              0,
		MaxQuality:             40,
		SanityCheckFrequency:   1000000,
		KnownSiteMismatchRatio: 2.0,
	}
}

// LoadArguments overrides the fields of args that are set in the given
// YAML file.
func LoadArguments(filename string, args *Arguments) error {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, args); err != nil {
		return errors.Wrapf(err, "while parsing configuration file %v", filename)
	}
	return nil
}

// Validate checks the arguments for consistency.
func (args *Arguments) Validate() error {
	switch args.SolidRecalMode {
	case DoNothing, SetQZero, SetQZeroBaseN, RemoveRefBias:
	default:
		return configErrorf("unknown SOLiD recalibration mode %v", args.SolidRecalMode)
	}
	switch args.SolidNocallStrategy {
	case ThrowException, LeaveReadUnrecalibrated, PurgeRead:
	default:
		return configErrorf("unknown SOLiD no-call strategy %v", args.SolidNocallStrategy)
	}
	if args.MismatchesContextSize < 1 || args.MismatchesContextSize > maxContextSize {
		return configErrorf("mismatches context size must be between 1 and %v, not %v", maxContextSize, args.MismatchesContextSize)
	}
	if args.MaximumCycleValue < 1 {
		return configErrorf("maximum cycle value must be positive, not %v", args.MaximumCycleValue)
	}
	if args.Smoothing < 0 {
		return configErrorf("smoothing must not be negative, not %v", args.Smoothing)
	}
	if args.MaxQuality <= 0 {
		return configErrorf("maximum quality must be positive, not %v", args.MaxQuality)
	}
	if args.SanityCheckFrequency < 1 {
		return configErrorf("sanity check frequency must be positive, not %v", args.SanityCheckFrequency)
	}
	_, err := NewCovariates(args)
	return err
}
