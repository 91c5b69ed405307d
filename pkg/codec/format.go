package codec

import (
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/archive/binaryarchive"
	"github.com/lk2023060901/archive-go/pkg/archive/jsonarchive"
	"github.com/lk2023060901/archive-go/pkg/archive/portablearchive"
	"github.com/lk2023060901/archive-go/pkg/archive/xmlarchive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// Format names one of the archive backends. The numeric values are part
// of the envelope header and must not change.
type Format uint8

const (
	FormatJSON Format = iota + 1
	FormatXML
	FormatBinary
	FormatPortable
)

var formatNames = map[Format]string{
	FormatJSON:     "json",
	FormatXML:      "xml",
	FormatBinary:   "binary",
	FormatPortable: "portable",
}

var formatLabels = map[Format]string{
	FormatJSON:     "JSON",
	FormatXML:      "XML",
	FormatBinary:   "Binary",
	FormatPortable: "Portable binary",
}

// Formats returns every format in rendering order.
func Formats() []Format {
	return []Format{FormatJSON, FormatXML, FormatBinary, FormatPortable}
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Label is the human readable name printed by the CLI.
func (f Format) Label() string {
	if label, ok := formatLabels[f]; ok {
		return label
	}
	return "Unknown"
}

func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// ParseFormat is case insensitive.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, merr.WrapErrParameterInvalid(strings.Join(lo.Map(Formats(), func(f Format, _ int) string {
		return f.String()
	}), "|"), s, "unknown format")
}

// ParseFormats parses a list of names, dropping duplicates while keeping
// the first occurrence order.
func ParseFormats(names []string) ([]Format, error) {
	formats := make([]Format, 0, len(names))
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return lo.Uniq(formats), nil
}

// NewOutput binds a new Output of format f to w. Nothing reaches w before
// the Output is closed.
func NewOutput(f Format, w io.Writer) (*archive.Output, error) {
	switch f {
	case FormatJSON:
		return jsonarchive.NewOutput(w), nil
	case FormatXML:
		return xmlarchive.NewOutput(w), nil
	case FormatBinary:
		return binaryarchive.NewOutput(w), nil
	case FormatPortable:
		return portablearchive.NewOutput(w), nil
	default:
		return nil, merr.WrapErrParameterInvalidMsg("unknown format %d", f)
	}
}

// NewInput binds a new Input of format f to r. Text formats read and
// parse the whole document here.
func NewInput(f Format, r io.Reader) (*archive.Input, error) {
	switch f {
	case FormatJSON:
		return jsonarchive.NewInput(r)
	case FormatXML:
		return xmlarchive.NewInput(r)
	case FormatBinary:
		return binaryarchive.NewInput(r), nil
	case FormatPortable:
		return portablearchive.NewInput(r)
	default:
		return nil, merr.WrapErrParameterInvalidMsg("unknown format %d", f)
	}
}
