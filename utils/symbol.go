package utils

import (
	"github.com/exascience/pargo/sync"

	"github.com/exascience/elrecal/internal"
)

type symbolName string

// A Symbol is a unique pointer to a string.
type Symbol *string

func (s symbolName) Hash() uint64 {
	return internal.StringHash(string(s))
}

var symbolTable = sync.NewMap(0)

/*
Intern returns a Symbol for the given string.

It always returns the same pointer for strings that are equal, and
different pointers for strings that are not equal. Read group and
contig names are interned when alignments are loaded, so that the
many keys and loci that refer to them share one copy.

It is safe for multiple goroutines to call Intern concurrently.
*/
func Intern(s string) Symbol {
	entry, _ := symbolTable.LoadOrStore(symbolName(s), Symbol(&s))
	return entry.(Symbol)
}

// InternString returns the canonical copy of s.
func InternString(s string) string {
	return *Intern(s)
}
