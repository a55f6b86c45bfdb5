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

	"github.com/pkg/errors"

	"github.com/exascience/elrecal/sam"
)

// A ReadError is a fatal problem with a particular read, like a
// missing read group or a malformed color-space tag.
type ReadError struct {
	ReadName string
	Msg      string
}

func (err *ReadError) Error() string {
	return fmt.Sprintf("%v (read %v)", err.Msg, err.ReadName)
}

func readErrorf(aln *sam.Alignment, format string, v ...interface{}) error {
	return errors.WithStack(&ReadError{ReadName: aln.QNAME, Msg: fmt.Sprintf(format, v...)})
}

// A ConfigError is a fatal problem with the recalibration arguments
// or with how they apply to the input, like an unknown platform.
type ConfigError struct {
	Msg string
}

func (err *ConfigError) Error() string {
	return err.Msg
}

func configErrorf(format string, v ...interface{}) error {
	return errors.WithStack(&ConfigError{Msg: fmt.Sprintf(format, v...)})
}

// IsReadError determines whether the cause of err is a *ReadError.
func IsReadError(err error) bool {
	_, ok := errors.Cause(err).(*ReadError)
	return ok
}

// IsConfigError determines whether the cause of err is a *ConfigError.
func IsConfigError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigError)
	return ok
}
