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

import "strings"

// Names of the required covariates, which are always the first two
// columns of a report.
const (
	ReadGroupCovariateName    = "ReadGroupCovariate"
	QualityScoreCovariateName = "QualityScoreCovariate"
)

type covariateEntry struct {
	name     string
	standard bool
	create   func(args *Arguments) Covariate
}

// covariateRegistry lists the optional covariates. Standard covariates
// come first, in the order in which they appear in reports.
var covariateRegistry = []covariateEntry{
	{"CycleCovariate", true, func(args *Arguments) Covariate {
		return cycleCovariate{maxCycle: int32(args.MaximumCycleValue)}
	}},
	{"DinucCovariate", true, func(*Arguments) Covariate {
		return dinucCovariate{}
	}},
	{"ContextCovariate", false, func(args *Arguments) Covariate {
		return contextCovariate{size: args.MismatchesContextSize, lowQualityTail: args.LowQualityTail}
	}},
	{"MappingQualityCovariate", false, func(*Arguments) Covariate {
		return mappingQualityCovariate{}
	}},
	{"HomopolymerCovariate", false, func(*Arguments) Covariate {
		return homopolymerCovariate{}
	}},
	{"PositionCovariate", false, func(*Arguments) Covariate {
		return positionCovariate{}
	}},
}

// ListCovariates returns the names of all available covariates, the
// required ones first.
func ListCovariates() []string {
	names := []string{ReadGroupCovariateName, QualityScoreCovariateName}
	for _, entry := range covariateRegistry {
		names = append(names, entry.name)
	}
	return names
}

// StandardCovariates returns the names of the standard optional
// covariates.
func StandardCovariates() (names []string) {
	for _, entry := range covariateRegistry {
		if entry.standard {
			names = append(names, entry.name)
		}
	}
	return names
}

func canonicalCovariateName(name string) string {
	name = strings.ToLower(name)
	if !strings.HasSuffix(name, "covariate") {
		name += "covariate"
	}
	return name
}

func lookupCovariate(name string) (covariateEntry, bool) {
	canonical := canonicalCovariateName(name)
	for _, entry := range covariateRegistry {
		if strings.ToLower(entry.name) == canonical {
			return entry, true
		}
	}
	return covariateEntry{}, false
}

// NewCovariates returns the optional covariates selected by args:
// the standard ones if requested, followed by the ones listed by name.
// Names may omit the "Covariate" suffix and are case-insensitive.
// Required covariates and duplicates in the list are ignored.
func NewCovariates(args *Arguments) ([]Covariate, error) {
	var names []string
	if args.StandardCovariates {
		names = StandardCovariates()
	}
	names = append(names, args.Covariates...)
	var result []Covariate
	seen := make(map[string]bool)
	for _, name := range names {
		switch canonicalCovariateName(name) {
		case strings.ToLower(ReadGroupCovariateName), strings.ToLower(QualityScoreCovariateName):
			continue
		}
		entry, ok := lookupCovariate(name)
		if !ok {
			return nil, configErrorf("unknown covariate %v, available covariates are %v", name, strings.Join(ListCovariates(), ", "))
		}
		if seen[entry.name] {
			continue
		}
		seen[entry.name] = true
		result = append(result, entry.create(args))
	}
	if len(result) > MaxOptionalCovariates {
		return nil, configErrorf("at most %v optional covariates are supported, %v requested", MaxOptionalCovariates, len(result))
	}
	return result, nil
}

// CovariateNames returns the report column names for the given
// optional covariates, including the required ones.
func CovariateNames(covariates []Covariate) []string {
	names := []string{ReadGroupCovariateName, QualityScoreCovariateName}
	for _, c := range covariates {
		names = append(names, c.Name())
	}
	return names
}

// OptionalCovariateNames returns the names of the given covariates.
func OptionalCovariateNames(covariates []Covariate) []string {
	names := make([]string, len(covariates))
	for i, c := range covariates {
		names[i] = c.Name()
	}
	return names
}

// covariateFormat returns the formatting function for values of the
// named optional covariate. Formatting does not depend on arguments.
func covariateFormat(name string) (func(int32) string, error) {
	entry, ok := lookupCovariate(name)
	if !ok {
		return nil, configErrorf("unknown covariate %v", name)
	}
	args := DefaultArguments()
	return entry.create(&args).Format, nil
}
