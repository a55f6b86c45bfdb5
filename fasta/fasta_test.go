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

package fasta

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "fasta")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	filename := filepath.Join(dir, "ref.fa")
	require.NoError(t, ioutil.WriteFile(filename, []byte(">chr1 test contig\nACGTr\nacgtn\n>chr2\nGGCC\n"), 0666))

	ref, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, []byte("ACGTNACGTN"), ref["chr1"])
	assert.Equal(t, []byte("GGCC"), ref["chr2"])
	assert.Equal(t, byte('G'), ref.Base("chr1", 2))
	assert.Equal(t, byte('N'), ref.Base("chr1", 10))
	assert.Equal(t, byte('N'), ref.Base("chrX", 0))
	assert.Equal(t, []byte("GCC"), ref.Slice("chr2", 1, 8))
	assert.Nil(t, ref.Slice("chr2", 5, 8))
}

func TestToUpperN(t *testing.T) {
	assert.Equal(t, byte('A'), ToUpperN('a'))
	assert.Equal(t, byte('T'), ToUpperN('T'))
	assert.Equal(t, byte('N'), ToUpperN('R'))
	assert.Equal(t, byte('N'), ToUpperN('.'))
}
