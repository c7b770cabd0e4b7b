// Package ioblock provides byte-granular positional I/O over a raw file
// handle, plus the fixed-window streaming loop producers use to page an
// update-stream file into memory without loading it whole.
package ioblock
