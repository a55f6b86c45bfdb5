// elPrep: a high-performance tool for preparing SAM/BAM files.
// Copyright (c) 2017-2019 imec vzw.

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

// elrecal counts the covariates of base quality score recalibration
// for .sam/.bam files, reporting empirical qualities per read group,
// reported quality, and covariate value.
//
// Commands: count-covariates, merge-tables, solid-correct,
// list-covariates, vcf-to-elsites, and bed-to-elsites.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elrecal/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: count-covariates, merge-tables, solid-correct, list-covariates, vcf-to-elsites, bed-to-elsites")
	fmt.Fprint(os.Stderr, "\n", cmd.CountCovariatesHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.MergeTablesHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.SolidCorrectHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ListCovariatesHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.VcfToElsitesHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.BedToElsitesHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage, "\n")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "count-covariates":
		err = cmd.CountCovariates()
	case "merge-tables":
		err = cmd.MergeTables()
	case "solid-correct":
		err = cmd.SolidCorrect()
	case "list-covariates":
		err = cmd.ListCovariates()
	case "vcf-to-elsites":
		err = cmd.VcfToElsites()
	case "bed-to-elsites":
		err = cmd.BedToElsites()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Printf("Unknown command %v.\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
