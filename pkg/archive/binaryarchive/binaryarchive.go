// Package binaryarchive stores archives in the byte order and word size of
// the host. Documents are compact but only readable on a machine of the same
// kind; use portablearchive to move data between hosts.
package binaryarchive

import (
	"io"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/archive/internal/binwire"
)

type (
	Encoder = binwire.Encoder
	Decoder = binwire.Decoder
)

func NewEncoder(w io.Writer) *Encoder {
	return binwire.NewEncoder(w, binwire.Native, nil)
}

func NewDecoder(r io.Reader) *Decoder {
	return binwire.NewDecoder(r, binwire.Native)
}

func NewOutput(w io.Writer) *archive.Output {
	return archive.NewOutput(NewEncoder(w))
}

func NewInput(r io.Reader) *archive.Input {
	return archive.NewInput(NewDecoder(r))
}
