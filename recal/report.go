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
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"github.com/exascience/elrecal/internal"
)

// EOFMarker terminates a CSV report.
const EOFMarker = "EOF"

// IntermediateSuffix is the file extension of intermediate tables.
const IntermediateSuffix = ".elrecal"

type reportWriter struct {
	w   io.Writer
	err error
}

func (rw *reportWriter) fprintf(format string, a ...interface{}) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintf(rw.w, format, a...)
}

func (rw *reportWriter) fprintln(a ...interface{}) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintln(rw.w, a...)
}

// ratio renders num/den the way the report header always did,
// including division by zero.
func ratio(num, den int64) string {
	r := float64(num) / float64(den)
	switch {
	case math.IsNaN(r):
		return "NaN"
	case math.IsInf(r, 1):
		return "Infinity"
	default:
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
}

func columnName(covariate string) string {
	return strings.TrimSuffix(covariate, "Covariate")
}

func formatters(covariates []string) ([]func(int32) string, error) {
	result := make([]func(int32) string, len(covariates))
	for i, name := range covariates {
		format, err := covariateFormat(name)
		if err != nil {
			return nil, err
		}
		result[i] = format
	}
	return result, nil
}

// WriteCSV writes the counts as a CSV report: a commented header with
// the site counters, a line with the column names, one line per bin
// of the full table in key order, and an EOF marker. Values that are
// not defined for a bin are written as null.
func (counts *Counts) WriteCSV(w io.Writer, smoothing int, maxQual float64) error {
	table, counted := counts.Table, &counts.Counted
	format, err := formatters(table.Covariates)
	if err != nil {
		return err
	}
	rw := &reportWriter{w: w}
	rw.fprintf("# Counted Sites    %d\n", counted.CountedSites)
	rw.fprintf("# Counted Bases    %d\n", counted.CountedBases)
	rw.fprintf("# Skipped Sites    %d\n", counted.SkippedSites)
	rw.fprintf("# Fraction Skipped 1 / %v bp\n", ratio(counted.CountedSites, counted.SkippedSites))
	if counted.SolidInsertedReferenceBases != 0 {
		rw.fprintf("# Fraction SOLiD inserted reference 1 / %v bases\n", ratio(counted.CountedBases, counted.SolidInsertedReferenceBases))
		rw.fprintf("# Fraction other color space inconsistencies 1 / %v bases\n", ratio(counted.CountedBases, counted.OtherColorSpaceInconsistency))
	}
	rw.fprintf("%v,%v,", columnName(ReadGroupCovariateName), columnName(QualityScoreCovariateName))
	for _, name := range table.Covariates {
		rw.fprintf("%v,", columnName(name))
	}
	rw.fprintln("nObservations,nMismatches,Qempirical")
	for _, key := range table.SortedKeys() {
		datum := table.Full[key]
		rw.fprintf("%v,%d,", key.ReadGroup, key.Qual)
		for i := range table.Covariates {
			if value := key.Values[i]; value == NoValue {
				rw.fprintf("null,")
			} else {
				rw.fprintf("%v,", format[i](value))
			}
		}
		rw.fprintf("%d,%d,%d\n", datum.Observations, datum.Mismatches, datum.EmpiricalQualityByte(smoothing, maxQual))
	}
	rw.fprintln(EOFMarker)
	return rw.err
}

const (
	covariateNameString    = "CovariateName"
	covariateValueString   = "CovariateValue"
	empiricalQualityString = "EmpiricalQuality"
	errorsString           = "Errors"
	eventTypeString        = "EventType"
	observationsString     = "Observations"
	qualityScoreString     = "QualityScore"
	readGroupString        = "ReadGroup"
)

func maxInt(x, y int) int {
	if x < y {
		return y
	}
	return x
}

type column struct {
	name  string
	left  bool
	cells []string
}

func (c *column) width() int {
	w := len(c.name)
	for _, cell := range c.cells {
		w = maxInt(w, len(cell))
	}
	return w
}

// printTable prints aligned columns separated by two spaces. Text is
// left-aligned, numbers are right-aligned.
func (rw *reportWriter) printTable(format, title string, columns []*column) {
	rw.fprintf("#:GATKTable:%d:%d:%v:;\n", len(columns), len(columns[0].cells), format)
	rw.fprintf("#:GATKTable:%v:\n", title)
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = c.width()
	}
	row := func(cell func(c *column) string, header bool) {
		for i, c := range columns {
			if i > 0 {
				rw.fprintf("  ")
			}
			if c.left || header {
				rw.fprintf("%-[1]*[2]s", widths[i], cell(c))
			} else {
				rw.fprintf("%[1]*[2]s", widths[i], cell(c))
			}
		}
		rw.fprintln()
	}
	row(func(c *column) string { return c.name }, true)
	for j := range columns[0].cells {
		row(func(c *column) string { return c.cells[j] }, false)
	}
	rw.fprintln()
}

func datumCells(datum *RecalDatum, smoothing int, maxQual float64, quality, observations, errs *column) {
	quality.cells = append(quality.cells, strconv.FormatFloat(datum.EmpiricalQuality(smoothing, maxQual), 'f', 4, 64))
	observations.cells = append(observations.cells, strconv.FormatInt(datum.Observations, 10))
	errs.cells = append(errs.cells, strconv.FormatInt(datum.Mismatches, 10)+".00")
}

// WriteCollapsed writes the collapsed tables as an aligned text
// report: per read group, per read group and quality, and per read
// group, quality and optional covariate value.
func (counts *Counts) WriteCollapsed(w io.Writer, smoothing int, maxQual float64) error {
	table := counts.Table
	format, err := formatters(table.Covariates)
	if err != nil {
		return err
	}
	rw := &reportWriter{w: w}
	rw.fprintln("#:GATKReport.v1.1:3")

	readGroups := make([]string, 0, len(table.ByReadGroup))
	for rg := range table.ByReadGroup {
		readGroups = append(readGroups, rg)
	}
	sort.Strings(readGroups)
	{
		rg := &column{name: readGroupString, left: true}
		event := &column{name: eventTypeString, left: true}
		quality := &column{name: empiricalQualityString}
		observations := &column{name: observationsString}
		errs := &column{name: errorsString}
		for _, readGroup := range readGroups {
			rg.cells = append(rg.cells, readGroup)
			event.cells = append(event.cells, "M")
			datumCells(table.ByReadGroup[readGroup], smoothing, maxQual, quality, observations, errs)
		}
		rw.printTable("%s:%s:%.4f:%d:%.2f", "RecalTable0", []*column{rg, event, quality, observations, errs})
	}

	qualKeys := make([]QualKey, 0, len(table.ByQuality))
	for key := range table.ByQuality {
		qualKeys = append(qualKeys, key)
	}
	sort.Slice(qualKeys, func(i, j int) bool {
		k1, k2 := qualKeys[i], qualKeys[j]
		if k1.ReadGroup != k2.ReadGroup {
			return k1.ReadGroup < k2.ReadGroup
		}
		return k1.Qual < k2.Qual
	})
	{
		rg := &column{name: readGroupString, left: true}
		qual := &column{name: qualityScoreString}
		event := &column{name: eventTypeString, left: true}
		quality := &column{name: empiricalQualityString}
		observations := &column{name: observationsString}
		errs := &column{name: errorsString}
		for _, key := range qualKeys {
			rg.cells = append(rg.cells, key.ReadGroup)
			qual.cells = append(qual.cells, strconv.Itoa(int(key.Qual)))
			event.cells = append(event.cells, "M")
			datumCells(table.ByQuality[key], smoothing, maxQual, quality, observations, errs)
		}
		rw.printTable("%s:%d:%s:%.4f:%d:%.2f", "RecalTable1", []*column{rg, qual, event, quality, observations, errs})
	}

	type binEntry struct {
		CovariateKey
		covariate int
	}
	var entries []binEntry
	for i, collapsed := range table.ByCovariate {
		for key := range collapsed {
			entries = append(entries, binEntry{key, i})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		e1, e2 := entries[i], entries[j]
		switch {
		case e1.ReadGroup != e2.ReadGroup:
			return e1.ReadGroup < e2.ReadGroup
		case e1.Qual != e2.Qual:
			return e1.Qual < e2.Qual
		case e1.covariate != e2.covariate:
			return e1.covariate < e2.covariate
		default:
			return e1.Value < e2.Value
		}
	})
	{
		rg := &column{name: readGroupString, left: true}
		qual := &column{name: qualityScoreString}
		value := &column{name: covariateValueString, left: true}
		name := &column{name: covariateNameString, left: true}
		event := &column{name: eventTypeString, left: true}
		quality := &column{name: empiricalQualityString}
		observations := &column{name: observationsString}
		errs := &column{name: errorsString}
		for _, entry := range entries {
			rg.cells = append(rg.cells, entry.ReadGroup)
			qual.cells = append(qual.cells, strconv.Itoa(int(entry.Qual)))
			value.cells = append(value.cells, format[entry.covariate](entry.Value))
			name.cells = append(name.cells, columnName(table.Covariates[entry.covariate]))
			event.cells = append(event.cells, "M")
			datumCells(table.ByCovariate[entry.covariate][entry.CovariateKey], smoothing, maxQual, quality, observations, errs)
		}
		rw.printTable("%s:%d:%s:%s:%s:%.4f:%d:%.2f", "RecalTable2", []*column{rg, qual, value, name, event, quality, observations, errs})
	}
	return rw.err
}

// WriteReports writes the CSV report and, if collapsedName is not
// empty, the collapsed report. Singleton bins are removed from the
// collapsed tables before they are written.
func (counts *Counts) WriteReports(csvName, collapsedName string, smoothing int, maxQual float64) (err error) {
	file, err := xopen.Wopen(csvName)
	if err != nil {
		return err
	}
	defer internal.Close(file, &err)
	if err = counts.WriteCSV(file, smoothing, maxQual); err != nil {
		return err
	}
	if collapsedName == "" {
		return nil
	}
	counts.Table.RemoveSingletonBins()
	collapsed, err := xopen.Wopen(collapsedName)
	if err != nil {
		return err
	}
	defer internal.Close(collapsed, &err)
	return counts.WriteCollapsed(collapsed, smoothing, maxQual)
}

// WriteIntermediate stores the counts in a snappy-compressed gob file,
// to be combined with other partial counts by LoadAndCombine.
func (counts *Counts) WriteIntermediate(name string) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer internal.Close(file, &err)
	w := snappy.NewBufferedWriter(file)
	defer internal.Close(w, &err)
	return gob.NewEncoder(w).Encode(counts)
}

// LoadIntermediate loads counts stored by WriteIntermediate.
func LoadIntermediate(name string) (counts *Counts, err error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer internal.Close(file, &err)
	counts = new(Counts)
	if err = gob.NewDecoder(snappy.NewReader(file)).Decode(counts); err != nil {
		return nil, errors.Wrapf(err, "while loading intermediate table %v", name)
	}
	if counts.Table == nil {
		return nil, errors.Errorf("intermediate table %v is empty", name)
	}
	counts.Table.initMaps()
	return counts, nil
}

func sameCovariates(c1, c2 []string) bool {
	if len(c1) != len(c2) {
		return false
	}
	for i, c := range c1 {
		if c2[i] != c {
			return false
		}
	}
	return true
}

// LoadAndCombine loads all intermediate tables in the given directory,
// or the given single file, and merges them in parallel into a single
// result. All tables must use the same covariates.
func LoadAndCombine(path string) (*Counts, error) {
	files, err := internal.FilesWithSuffix(path, IntermediateSuffix)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no intermediate tables found in %v", path)
	}
	sort.Strings(files)
	result := parallel.RangeReduce(0, len(files), 0, func(low, high int) interface{} {
		var combined *Counts
		for _, name := range files[low:high] {
			counts, err := LoadIntermediate(name)
			if err != nil {
				return partialCounts{err: err}
			}
			if combined == nil {
				combined = counts
			} else if err := mergeIntermediate(combined, counts, name); err != nil {
				return partialCounts{err: err}
			}
		}
		return partialCounts{counts: combined}
	}, func(x, y interface{}) interface{} {
		left, right := x.(partialCounts), y.(partialCounts)
		if left.err != nil {
			return left
		}
		if right.err != nil {
			return right
		}
		if err := mergeIntermediate(left.counts, right.counts, path); err != nil {
			return partialCounts{err: err}
		}
		return left
	}).(partialCounts)
	return result.counts, result.err
}

func mergeIntermediate(counts, other *Counts, name string) error {
	if !sameCovariates(counts.Table.Covariates, other.Table.Covariates) {
		return configErrorf("intermediate table %v uses covariates %v, expected %v", name, other.Table.Covariates, counts.Table.Covariates)
	}
	counts.Merge(other)
	return nil
}
