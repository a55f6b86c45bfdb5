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
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/exascience/elrecal/fasta"
	"github.com/exascience/elrecal/recal"
	"github.com/exascience/elrecal/sam"
)

// SolidCorrectHelp is the help string for this command.
const SolidCorrectHelp = "\nsolid-correct parameters:\n" +
	"elrecal solid-correct sam-or-bam-input-file fasta-reference-file sam-output-file\n" +
	"[--solid-recal-mode DO_NOTHING | SET_Q_ZERO | SET_Q_ZERO_BASE_N | REMOVE_REF_BIAS]\n" +
	"[--solid-nocall-strategy THROW_EXCEPTION | LEAVE_READ_UNRECALIBRATED | PURGE_READ]\n" +
	"[--seed n]\n" +
	"[--default-read-group id]\n" +
	"[--default-platform name]\n" +
	"[--force-read-group id]\n" +
	"[--force-platform name]\n" +
	"[--config yaml-file]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// SolidCorrect implements the elrecal solid-correct command.
func SolidCorrect() error {
	args, config, err := loadArguments(5)
	if err != nil {
		return err
	}

	var (
		mode, strategy, profile, logPath string
		nrOfThreads                      int
		timed                            bool
	)

	var flags flag.FlagSet

	flags.StringVar(&config, "config", config, "load recalibration arguments from a YAML file")
	solidFlags(&flags, &mode, &strategy, &args)
	flags.Uint64Var(&args.Seed, "seed", args.Seed, "seed for REMOVE_REF_BIAS")
	readGroupFlags(&flags, &args)
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 5, SolidCorrectHelp)

	input := getFilename(os.Args[2], SolidCorrectHelp)
	reference := getFilename(os.Args[3], SolidCorrectHelp)
	output := getFilename(os.Args[4], SolidCorrectHelp)

	setLogOutput(logPath)

	args.SolidRecalMode = recal.SolidRecalMode(strings.ToUpper(mode))
	args.SolidNocallStrategy = recal.SolidNocallStrategy(strings.ToUpper(strategy))

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkExist("", reference) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if !checkArguments(&args) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if !checkNrOfThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, SolidCorrectHelp)
		os.Exit(1)
	}

	var (
		s   *sam.Sam
		ref fasta.Reference
	)

	err = timedRun(timed, profile, "Loading input and reference.", 1, func() error {
		var g errgroup.Group
		g.Go(func() (err error) {
			s, err = sam.Load(input)
			return err
		})
		g.Go(func() (err error) {
			ref, err = fasta.Load(reference)
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return err
	}

	diag := recal.NewDiagnostics(nil, args.SanityCheckFrequency)
	err = timedRun(timed, profile, "Correcting SOLiD reads.", 2, func() error {
		alns := s.Alignments
		result := parallel.RangeReduce(0, len(alns), 0, func(low, high int) interface{} {
			for i := low; i < high; i++ {
				aln := alns[i]
				var contig []byte
				if !aln.IsUnmapped() {
					var ok bool
					if contig, ok = ref[aln.RNAME]; !ok {
						return errors.Errorf("contig %v of read %v does not occur in the reference", aln.RNAME, aln.QNAME)
					}
				}
				if err := recal.CorrectRead(aln, contig, &args, diag); err != nil {
					return err
				}
			}
			return nil
		}, func(x, y interface{}) interface{} {
			if x != nil {
				return x
			}
			return y
		})
		if result != nil {
			return result.(error)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n := diag.PurgedReads(); n > 0 {
		log.Printf("Marked %v SOLiD reads with no-call colors as QC-failed.\n", n)
	}

	return timedRun(timed, profile, "Writing output.", 3, func() error {
		return s.WriteSam(output)
	})
}
