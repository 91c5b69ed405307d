package archive_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/archive/binaryarchive"
	"github.com/lk2023060901/archive-go/pkg/archive/jsonarchive"
	"github.com/lk2023060901/archive-go/pkg/archive/portablearchive"
	"github.com/lk2023060901/archive-go/pkg/archive/xmlarchive"
)

type format struct {
	name   string
	output func(w io.Writer) *archive.Output
	input  func(r io.Reader) (*archive.Input, error)
}

var formats = []format{
	{"json", jsonarchive.NewOutput, jsonarchive.NewInput},
	{"xml", xmlarchive.NewOutput, xmlarchive.NewInput},
	{"binary", binaryarchive.NewOutput, func(r io.Reader) (*archive.Input, error) {
		return binaryarchive.NewInput(r), nil
	}},
	{"portable", portablearchive.NewOutput, portablearchive.NewInput},
}

func encode(t *testing.T, f format, items ...any) []byte {
	t.Helper()
	var buf bytes.Buffer
	out := f.output(&buf)
	require.NoError(t, out.Save(items...))
	require.NoError(t, out.Close())
	return buf.Bytes()
}

func decode(t *testing.T, f format, doc []byte, targets ...any) {
	t.Helper()
	in, err := f.input(bytes.NewReader(doc))
	require.NoError(t, err)
	require.NoError(t, in.Load(targets...))
	require.NoError(t, in.Close())
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
