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

package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/exascience/elrecal/recal"
)

// MergeTablesHelp is the help string for this command.
const MergeTablesHelp = "\nmerge-tables parameters:\n" +
	"elrecal merge-tables /path/to/intermediate/tables csv-output-file\n" +
	"[--collapsed file]\n" +
	"[--smoothing n]\n" +
	"[--max-quality q]\n" +
	"[--config yaml-file]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// MergeTables implements the elrecal merge-tables command.
func MergeTables() error {
	args, config, err := loadArguments(4)
	if err != nil {
		return err
	}

	var (
		collapsed, profile, logPath string
		nrOfThreads                 int
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&config, "config", config, "load recalibration arguments from a YAML file")
	flags.StringVar(&collapsed, "collapsed", "", "also write the collapsed tables to the specified file")
	flags.IntVar(&args.Smoothing, "smoothing", args.Smoothing, "pseudo count added to observations and mismatches")
	flags.Float64Var(&args.MaxQuality, "max-quality", args.MaxQuality, "maximum reported empirical quality")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 4, MergeTablesHelp)

	input := getFilename(os.Args[2], MergeTablesHelp)
	output := getFilename(os.Args[3], MergeTablesHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if collapsed != "" && !checkCreate("--collapsed", collapsed) {
		sanityChecksFailed = true
	}
	if args.Smoothing < 0 {
		log.Println("Error: Invalid smoothing: ", args.Smoothing)
		sanityChecksFailed = true
	}
	if args.MaxQuality <= 0 {
		log.Println("Error: Invalid max-quality: ", args.MaxQuality)
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if !checkNrOfThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, MergeTablesHelp)
		os.Exit(1)
	}

	var counts *recal.Counts
	err = timedRun(timed, profile, "Loading and merging intermediate tables.", 1, func() (err error) {
		counts, err = recal.LoadAndCombine(input)
		return err
	})
	if err != nil {
		return err
	}
	if counts.Counted.CountedBases == 0 {
		return recal.ErrNoUsableData
	}

	return timedRun(timed, profile, "Writing results.", 2, func() error {
		return counts.WriteReports(output, collapsed, args.Smoothing, args.MaxQuality)
	})
}
