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

package intervals

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/exascience/pargo/pipeline"
	psort "github.com/exascience/pargo/sort"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"github.com/exascience/elrecal/internal"
	"github.com/exascience/elrecal/utils"
)

// Interval is a 0-based, half-open range [Start, End) on a contig.
type Interval struct {
	Start, End int32
}

// SortByStart sorts a slice of Interval by Start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type stableIntervalSorter []Interval

func (s stableIntervalSorter) SequentialSort(i, j int) {
	SortByStart(s[i:j])
}

func (s stableIntervalSorter) NewTemp() psort.StableSorter {
	return stableIntervalSorter(make([]Interval, len(s)))
}

func (s stableIntervalSorter) Len() int {
	return len(s)
}

func (s stableIntervalSorter) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s stableIntervalSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableIntervalSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart sorts a slice of Interval by Start position using
// a parallel stable sort.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(stableIntervalSorter(intervals))
}

// Extend makes interval1 larger if it overlaps with or touches
// interval2, by storing max(interval1.End, interval2.End) in
// interval1.End; otherwise, interval1 remains unchanged.
// Returns true if the two intervals were joined, false otherwise.
// interval2.Start >= interval1.Start must be true before
// calling Extend.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals into larger intervals.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func Flatten(intervals []Interval) []Interval {
	for i, n := 0, len(intervals)-1; i < n; i++ {
		if intervals[i].Extend(intervals[i+1]) {
			n++
			for j := i + 1; j < n; j++ {
				if !intervals[i].Extend(intervals[j]) {
					i++
					intervals[i] = intervals[j]
				}
			}
			return intervals[:i+1]
		}
	}
	return intervals
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten merges overlapping intervals into larger intervals,
// using a parallel algorithm.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for len(right) > 0 && left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Contains determines whether pos lies in any of the given intervals.
// intervals must be Flattened and sorted by Start.
func Contains(intervals []Interval, pos int32) bool {
	i := sort.Search(len(intervals), func(i int) bool {
		return intervals[i].End > pos
	})
	return i < len(intervals) && intervals[i].Start <= pos
}

// Sites maps contig names to known-site intervals.
type Sites map[string][]Interval

// IsKnown determines whether the 0-based position pos on the given
// contig is a known site. The Sites must be normalized.
func (sites Sites) IsKnown(contig string, pos int32) bool {
	return Contains(sites[contig], pos)
}

// Add appends all intervals of other to sites. The result needs to be
// normalized again.
func (sites Sites) Add(other Sites) {
	for contig, ivals := range other {
		sites[contig] = append(sites[contig], ivals...)
	}
}

// Normalize sorts and flattens the intervals of every contig.
func (sites Sites) Normalize() {
	contigs := make([]string, 0, len(sites))
	for contig := range sites {
		contigs = append(contigs, contig)
	}
	result := make([][]Interval, len(contigs))
	parallel.Range(0, len(contigs), 0, func(low, high int) {
		for i := low; i < high; i++ {
			ivals := sites[contigs[i]]
			ParallelSortByStart(ivals)
			result[i] = ParallelFlatten(ivals)
		}
	})
	for i, contig := range contigs {
		sites[contig] = result[i]
	}
}

// Size returns the number of intervals across all contigs.
func (sites Sites) Size() (n int) {
	for _, ivals := range sites {
		n += len(ivals)
	}
	return n
}

// ElsitesHeader is the header line that every .elsites file starts with.
const ElsitesHeader = "# elsites format version 1.0\n"

// ToElsitesFile stores intervals in an .elsites file. Contigs are
// written in sorted order.
func ToElsitesFile(sites Sites, filename string) (err error) {
	pathname, err := internal.FullPathname(filename)
	if err != nil {
		return err
	}
	output, err := xopen.Wopen(pathname)
	if err != nil {
		return err
	}
	defer internal.Close(output, &err)
	if _, err = output.WriteString(ElsitesHeader); err != nil {
		return err
	}
	contigs := make([]string, 0, len(sites))
	for contig := range sites {
		contigs = append(contigs, contig)
	}
	sort.Strings(contigs)
	for _, contig := range contigs {
		var buf []byte
		for _, ival := range sites[contig] {
			buf = append(buf, contig...)
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(ival.Start), 10)
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(ival.End), 10)
			buf = append(buf, '\n')
		}
		if _, err = output.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// A lineParser parses one line of a sites file. It returns ok == false
// for lines that carry no interval, like comments.
type lineParser func(line string) (contig string, ival Interval, ok bool, err error)

// parseLines scans the input in parallel batches and collects the
// intervals in input order.
func parseLines(input io.Reader, parse lineParser) (Sites, error) {
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(input))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		strs := data.([]string)
		sites := make(Sites)
		for _, str := range strs {
			contig, ival, ok, err := parse(str)
			if err != nil {
				p.SetErr(err)
				return sites
			}
			if ok {
				contig = utils.InternString(contig)
				sites[contig] = append(sites[contig], ival)
			}
		}
		return sites
	})))
	sites := make(Sites)
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		sites.Add(data.(Sites))
		return data
	})))
	p.Run()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return sites, nil
}

// splitFields returns the first n tab-separated fields of line.
func splitFields(line string, n int) ([]string, bool) {
	fields := strings.SplitN(line, "\t", n+1)
	if len(fields) < n {
		return nil, false
	}
	return fields[:n], true
}

func parseInt32(s string) (int32, error) {
	value, err := strconv.ParseInt(s, 10, 32)
	return int32(value), err
}

func parseElsitesLine(line string) (string, Interval, bool, error) {
	fields, ok := splitFields(line, 3)
	if !ok || fields[0] == "" {
		return "", Interval{}, false, fmt.Errorf("invalid sites line %v", line)
	}
	start, err := parseInt32(fields[1])
	if err != nil {
		return "", Interval{}, false, err
	}
	end, err := parseInt32(fields[2])
	if err != nil {
		return "", Interval{}, false, err
	}
	return fields[0], Interval{Start: start, End: end}, true, nil
}

func parseVcfLine(line string) (string, Interval, bool, error) {
	if line == "" || line[0] == '#' {
		return "", Interval{}, false, nil
	}
	fields, ok := splitFields(line, 4)
	if !ok {
		return "", Interval{}, false, fmt.Errorf("invalid VCF line %v", line)
	}
	pos, err := parseInt32(fields[1])
	if err != nil {
		return "", Interval{}, false, errors.Wrapf(err, "while parsing VCF variant %v", line)
	}
	start := pos - 1
	return fields[0], Interval{Start: start, End: start + int32(len(fields[3]))}, true, nil
}

func parseBedLine(line string) (string, Interval, bool, error) {
	if line == "" || line[0] == '#' ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser") {
		return "", Interval{}, false, nil
	}
	fields, ok := splitFields(line, 3)
	if !ok {
		return "", Interval{}, false, fmt.Errorf("invalid BED line %v", line)
	}
	start, err := parseInt32(fields[1])
	if err != nil {
		return "", Interval{}, false, err
	}
	end, err := parseInt32(fields[2])
	if err != nil {
		return "", Interval{}, false, err
	}
	return fields[0], Interval{Start: start, End: end}, true, nil
}

func fromFile(filename string, parse lineParser, checkHeader func(*xopen.Reader) error) (sites Sites, err error) {
	pathname, err := internal.FullPathname(filename)
	if err != nil {
		return nil, err
	}
	input, err := xopen.Ropen(pathname)
	if err != nil {
		return nil, err
	}
	defer internal.Close(input, &err)
	if checkHeader != nil {
		if err := checkHeader(input); err != nil {
			return nil, err
		}
	}
	sites, err = parseLines(input, parse)
	return sites, errors.Wrapf(err, "while reading %v", filename)
}

// FromElsitesFile loads intervals from an .elsites file.
func FromElsitesFile(filename string) (Sites, error) {
	return fromFile(filename, parseElsitesLine, func(input *xopen.Reader) error {
		header, err := input.ReadString('\n')
		if err != nil {
			return err
		}
		if header != ElsitesHeader {
			return fmt.Errorf("%v is not a .elsites file - invalid header", filename)
		}
		return nil
	})
}

// FromVcfFile returns the intervals covered by the reference alleles
// of the variants in a (possibly gzipped) VCF file.
func FromVcfFile(filename string) (Sites, error) {
	return fromFile(filename, parseVcfLine, nil)
}

// FromBedFile returns the intervals of the entries in a (possibly
// gzipped) BED file.
func FromBedFile(filename string) (Sites, error) {
	return fromFile(filename, parseBedLine, nil)
}

// FromFile loads known sites, choosing the format by file extension.
func FromFile(filename string) (Sites, error) {
	name := strings.TrimSuffix(strings.ToLower(filename), ".gz")
	switch filepath.Ext(name) {
	case ".vcf":
		return FromVcfFile(filename)
	case ".bed":
		return FromBedFile(filename)
	case ".elsites":
		return FromElsitesFile(filename)
	default:
		return nil, fmt.Errorf("unknown known-sites file format %v", filename)
	}
}

// FromFiles loads and normalizes the known sites of all given files.
func FromFiles(filenames []string) (Sites, error) {
	sites := make(Sites)
	for _, filename := range filenames {
		s, err := FromFile(filename)
		if err != nil {
			return nil, err
		}
		sites.Add(s)
	}
	sites.Normalize()
	return sites, nil
}
