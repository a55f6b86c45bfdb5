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

package internal

import farm "github.com/dgryski/go-farm"

// BoolHash returns a hash value for the given boolean value.
func BoolHash(b bool) uint64 {
	if b {
		return (1 << 35) - 1
	}
	return ((1 << 29) - 1) << 35
}

// StringHash returns a hash value for the given string value.
func StringHash(s string) uint64 {
	return farm.Hash64([]byte(s))
}

// StringHashWithSeed returns a seeded hash value for the given string
// value. Equal strings and seeds always yield equal hashes, across runs
// and platforms.
func StringHashWithSeed(s string, seed uint64) uint64 {
	return farm.Hash64WithSeed([]byte(s), seed)
}

// CombineHashes mixes two hash values into one.
func CombineHashes(h1, h2 uint64) uint64 {
	return farm.Fingerprint64([]byte{
		byte(h1), byte(h1 >> 8), byte(h1 >> 16), byte(h1 >> 24),
		byte(h1 >> 32), byte(h1 >> 40), byte(h1 >> 48), byte(h1 >> 56),
		byte(h2), byte(h2 >> 8), byte(h2 >> 16), byte(h2 >> 24),
		byte(h2 >> 32), byte(h2 >> 40), byte(h2 >> 48), byte(h2 >> 56),
	})
}
