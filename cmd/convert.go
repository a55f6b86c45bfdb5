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

	"github.com/exascience/elrecal/intervals"
)

// VcfToElsitesHelp is the help string for this command.
const VcfToElsitesHelp = "\nvcf-to-elsites parameters:\n" +
	"elrecal vcf-to-elsites vcf-file elsites-file\n" +
	"[--log-path path]\n"

// VcfToElsites implements the elrecal vcf-to-elsites command.
func VcfToElsites() error {
	return convertSites(VcfToElsitesHelp, intervals.FromVcfFile)
}

// BedToElsitesHelp is the help string for this command.
const BedToElsitesHelp = "\nbed-to-elsites parameters:\n" +
	"elrecal bed-to-elsites bed-file elsites-file\n" +
	"[--log-path path]\n"

// BedToElsites implements the elrecal bed-to-elsites command.
func BedToElsites() error {
	return convertSites(BedToElsitesHelp, intervals.FromBedFile)
}

func convertSites(help string, load func(string) (intervals.Sites, error)) error {
	var logPath string

	var flags flag.FlagSet
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	parseFlags(&flags, 4, help)

	input := getFilename(os.Args[2], help)
	output := getFilename(os.Args[3], help)

	setLogOutput(logPath)

	if !checkExist("", input) || !checkCreate("", output) {
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}

	sites, err := load(input)
	if err != nil {
		return err
	}
	sites.Normalize()
	log.Printf("Writing %v intervals to %v.\n", sites.Size(), output)
	return intervals.ToElsitesFile(sites, output)
}
