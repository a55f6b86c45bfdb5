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
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Diagnostics collects the warning state of a run: which one-time
// warnings were already emitted, how often the known-site sanity
// check runs, and how many reads were purged. A Diagnostics value is
// shared by all workers of a run.
type Diagnostics struct {
	// Logger receives warnings. If nil, the standard logger is used.
	Logger *log.Logger

	mutex  sync.Mutex
	warned map[string]bool

	checkFrequency int64
	warnings       int64
	purgedReads    int64
}

// NewDiagnostics returns diagnostics with the given initial sanity
// check frequency.
func NewDiagnostics(logger *log.Logger, checkFrequency int) *Diagnostics {
	if checkFrequency < 1 {
		checkFrequency = 1
	}
	return &Diagnostics{
		Logger:         logger,
		warned:         make(map[string]bool),
		checkFrequency: int64(checkFrequency),
	}
}

func (diag *Diagnostics) output(msg string) {
	atomic.AddInt64(&diag.warnings, 1)
	if diag.Logger != nil {
		_ = diag.Logger.Output(3, msg)
	} else {
		_ = log.Output(3, msg)
	}
}

// Warnf logs a warning.
func (diag *Diagnostics) Warnf(format string, v ...interface{}) {
	diag.output("Warning: " + fmt.Sprintf(format, v...))
}

// WarnOncef logs a warning only the first time it is requested for
// the given key.
func (diag *Diagnostics) WarnOncef(key, format string, v ...interface{}) {
	diag.mutex.Lock()
	if diag.warned[key] {
		diag.mutex.Unlock()
		return
	}
	diag.warned[key] = true
	diag.mutex.Unlock()
	diag.output("Warning: " + fmt.Sprintf(format, v...))
}

// Warnings returns the number of warnings logged so far.
func (diag *Diagnostics) Warnings() int {
	return int(atomic.LoadInt64(&diag.warnings))
}

// CheckFrequency returns the current number of loci between two
// known-site sanity checks.
func (diag *Diagnostics) CheckFrequency() int64 {
	return atomic.LoadInt64(&diag.checkFrequency)
}

// BackOff doubles the sanity check frequency, unless another worker
// already did so since the caller read the frequency old.
func (diag *Diagnostics) BackOff(old int64) {
	atomic.CompareAndSwapInt64(&diag.checkFrequency, old, 2*old)
}

func (diag *Diagnostics) countPurgedRead() {
	atomic.AddInt64(&diag.purgedReads, 1)
}

// PurgedReads returns the number of SOLiD reads skipped under the
// PURGE_READ no-call strategy.
func (diag *Diagnostics) PurgedReads() int {
	return int(atomic.LoadInt64(&diag.purgedReads))
}
