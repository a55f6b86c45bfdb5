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
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/exascience/elrecal/fasta"
	"github.com/exascience/elrecal/intervals"
	"github.com/exascience/elrecal/pileup"
	"github.com/exascience/elrecal/recal"
	"github.com/exascience/elrecal/sam"
)

// CountCovariatesHelp is the help string for this command.
const CountCovariatesHelp = "count-covariates parameters:\n" +
	"elrecal count-covariates sam-or-bam-input-file fasta-reference-file csv-output-file\n" +
	"[--known-sites list]\n" +
	"[--run-without-known-sites]\n" +
	"[--covariates list]\n" +
	"[--no-standard-covs]\n" +
	"[--solid-recal-mode DO_NOTHING | SET_Q_ZERO | SET_Q_ZERO_BASE_N | REMOVE_REF_BIAS]\n" +
	"[--solid-nocall-strategy THROW_EXCEPTION | LEAVE_READ_UNRECALIBRATED | PURGE_READ]\n" +
	"[--default-read-group id]\n" +
	"[--default-platform name]\n" +
	"[--force-read-group id]\n" +
	"[--force-platform name]\n" +
	"[--mismatches-context-size n]\n" +
	"[--maximum-cycle-value n]\n" +
	"[--low-quality-tail n]\n" +
	"[--smoothing n]\n" +
	"[--max-quality q]\n" +
	"[--keep-secondary]\n" +
	"[--keep-duplicates]\n" +
	"[--keep-qc-failed]\n" +
	"[--window-size n]\n" +
	"[--collapsed file]\n" +
	"[--tables-only] (the output is a directory for intermediate tables)\n" +
	"[--config yaml-file]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

func splitList(list string) (result []string) {
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// CountCovariates implements the elrecal count-covariates command.
func CountCovariates() error {
	args, config, err := loadArguments(5)
	if err != nil {
		return err
	}

	var (
		knownSites, covariates, mode, strategy string
		collapsed, profile, logPath            string
		noStandardCovs, tablesOnly, timed      bool
		lowQualityTail, nrOfThreads            int
	)

	opts := pileup.DefaultOptions()
	windowSize := int(opts.WindowSize)

	var flags flag.FlagSet

	flags.StringVar(&config, "config", config, "load recalibration arguments from a YAML file")
	flags.StringVar(&knownSites, "known-sites", "", "comma-separated list of .vcf, .bed, or .elsites files with known variant sites")
	flags.BoolVar(&args.RunWithoutKnownSites, "run-without-known-sites", args.RunWithoutKnownSites, "count all sites as novel sites")
	flags.StringVar(&covariates, "covariates", strings.Join(args.Covariates, ","), "comma-separated list of optional covariates")
	flags.BoolVar(&noStandardCovs, "no-standard-covs", !args.StandardCovariates, "do not use the standard covariates")
	solidFlags(&flags, &mode, &strategy, &args)
	readGroupFlags(&flags, &args)
	flags.IntVar(&args.MismatchesContextSize, "mismatches-context-size", args.MismatchesContextSize, "size of the k-mer context")
	flags.IntVar(&args.MaximumCycleValue, "maximum-cycle-value", args.MaximumCycleValue, "maximum read length")
	flags.IntVar(&lowQualityTail, "low-quality-tail", int(args.LowQualityTail), "quality at or below which bases are masked in contexts")
	flags.IntVar(&args.Smoothing, "smoothing", args.Smoothing, "pseudo count added to observations and mismatches")
	flags.Float64Var(&args.MaxQuality, "max-quality", args.MaxQuality, "maximum reported empirical quality")
	flags.BoolVar(&opts.KeepSecondary, "keep-secondary", false, "count secondary alignments")
	flags.BoolVar(&opts.KeepDuplicates, "keep-duplicates", false, "count duplicate reads")
	flags.BoolVar(&opts.KeepQCFailed, "keep-qc-failed", false, "count reads that failed quality checks")
	flags.IntVar(&windowSize, "window-size", windowSize, "number of reference positions per parallel region")
	flags.StringVar(&collapsed, "collapsed", "", "also write the collapsed tables to the specified file")
	flags.BoolVar(&tablesOnly, "tables-only", false, "write an intermediate table to the output directory instead of a report")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 5, CountCovariatesHelp)

	input := getFilename(os.Args[2], CountCovariatesHelp)
	reference := getFilename(os.Args[3], CountCovariatesHelp)
	output := getFilename(os.Args[4], CountCovariatesHelp)

	setLogOutput(logPath)

	if config != "" {
		log.Println("Loaded recalibration arguments from", config)
	}

	args.Covariates = splitList(covariates)
	args.StandardCovariates = !noStandardCovs
	args.SolidRecalMode = recal.SolidRecalMode(strings.ToUpper(mode))
	args.SolidNocallStrategy = recal.SolidNocallStrategy(strings.ToUpper(strategy))
	opts.WindowSize = int32(windowSize)
	knownSitesFiles := splitList(knownSites)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkExist("", reference) {
		sanityChecksFailed = true
	}
	if tablesOnly {
		if !checkCreateDirectory("", output) {
			sanityChecksFailed = true
		}
		if collapsed != "" {
			log.Println("Warning: The --collapsed option is ignored when --tables-only is set.")
			collapsed = ""
		}
	} else if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if collapsed != "" && !checkCreate("--collapsed", collapsed) {
		sanityChecksFailed = true
	}
	for _, file := range knownSitesFiles {
		if !checkExist("--known-sites", file) {
			sanityChecksFailed = true
		}
	}
	if len(knownSitesFiles) == 0 && !args.RunWithoutKnownSites {
		log.Println("Error: Attempt to count covariates without known sites. Please add the --known-sites option to your call, or use --run-without-known-sites.")
		sanityChecksFailed = true
	}
	if lowQualityTail < 0 || lowQualityTail > 255 {
		log.Println("Error: Invalid low-quality-tail: ", lowQualityTail)
		sanityChecksFailed = true
	} else {
		args.LowQualityTail = uint8(lowQualityTail)
	}
	if windowSize < 1 {
		log.Println("Error: Invalid window-size: ", windowSize)
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
		fmt.Fprint(os.Stderr, CountCovariatesHelp)
		os.Exit(1)
	}

	var (
		inputSam *sam.Sam
		ref      fasta.Reference
		sites    intervals.Sites
		regions  []recal.Region
	)

	err = timedRun(timed, profile, "Loading input, reference, and known sites.", 1, func() (err error) {
		var g errgroup.Group
		g.Go(func() (err error) {
			inputSam, err = sam.Load(input)
			return err
		})
		g.Go(func() (err error) {
			ref, err = fasta.Load(reference)
			return err
		})
		if len(knownSitesFiles) > 0 {
			g.Go(func() (err error) {
				sites, err = intervals.FromFiles(knownSitesFiles)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		log.Printf("Loaded %v reads, %v reference sequences, and %v known sites.\n", len(inputSam.Alignments), len(ref), sites.Size())
		regions, err = pileup.Regions(inputSam.Alignments, ref, opts)
		return err
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		select {
		case <-interrupt:
			log.Println("Interrupted, cancelling the run.")
			cancel()
		case <-ctx.Done():
		}
	}()

	var known recal.KnownSites
	if sites != nil {
		known = sites
	}
	diag := recal.NewDiagnostics(nil, args.SanityCheckFrequency)

	var counts *recal.Counts
	err = timedRun(timed, profile, "Counting covariates.", 2, func() (err error) {
		counts, err = recal.CountCovariates(ctx, regions, known, &args, diag)
		return err
	})
	if err != nil {
		return err
	}
	counted := counts.Counted
	log.Printf("Counted %v bases at %v sites, skipped %v known sites.\n", counted.CountedBases, counted.CountedSites, counted.SkippedSites)
	if n := diag.PurgedReads(); n > 0 {
		log.Printf("Purged %v SOLiD reads with no-call colors.\n", n)
	}

	return timedRun(timed, profile, "Writing results.", 3, func() error {
		if tablesOnly {
			name := filepath.Join(output, uuid.New().String()+recal.IntermediateSuffix)
			log.Println("Writing intermediate table", name)
			return counts.WriteIntermediate(name)
		}
		return counts.WriteReports(output, collapsed, args.Smoothing, args.MaxQuality)
	})
}

// ListCovariatesHelp is the help string for this command.
const ListCovariatesHelp = "\nlist-covariates parameters:\n" +
	"elrecal list-covariates\n"

// ListCovariates implements the elrecal list-covariates command.
func ListCovariates() error {
	standard := make(map[string]bool)
	for _, name := range recal.StandardCovariates() {
		standard[name] = true
	}
	for i, name := range recal.ListCovariates() {
		switch {
		case i < 2:
			fmt.Println(name, "(required)")
		case standard[name]:
			fmt.Println(name, "(standard)")
		default:
			fmt.Println(name)
		}
	}
	return nil
}
