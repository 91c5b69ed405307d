// Command archive prints a line of text as it is stored by every archive
// format.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/lk2023060901/archive-go/application"
	"github.com/lk2023060901/archive-go/internal/serializer"
	"github.com/lk2023060901/archive-go/pkg/log"
)

var reporters = map[string]serializer.Serializer{
	"json":    serializer.JSONSerializer{},
	"yaml":    serializer.YAMLSerializer{},
	"msgpack": serializer.MsgpackSerializer{},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "exception of unknown type: %v\n", r)
			code = 1
		}
	}()

	fs := pflag.NewFlagSet("archive", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	help := fs.BoolP("help", "h", false, "produce help message")
	interactive := fs.BoolP("interactive", "i", false, "read one line from stdin and print it in every configured format")
	configPath := fs.String("config", "", "config file, defaults to $ARCHIVE_CONFIG_FILE_PATH or ./archive.yaml")
	reportFormat := fs.String("report", "", "print a report instead of text: json, yaml or msgpack")
	verify := fs.Bool("verify", false, "load every document back and check it matches the input")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *help {
		fmt.Fprintln(stdout, "Allowed options:")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if _, ok := reporters[*reportFormat]; *reportFormat != "" && !ok {
		fmt.Fprintf(stderr, "error: unsupported report format %q\n", *reportFormat)
		return 1
	}

	if err := execute(*configPath, *interactive, *verify, *reportFormat, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func execute(configPath string, interactive, verify bool, reportFormat string, stdin io.Reader, stdout io.Writer) error {
	app := application.New(configPath)
	if err := app.Run(); err != nil {
		return err
	}
	defer app.Stop()

	if !interactive {
		return nil
	}

	line, err := readLine(stdin)
	if err != nil {
		return err
	}

	ctx, span := log.NewIntentContext("archive", "render")
	defer span.End()

	r, err := newRenderer(app.Config(), app.Logger("cli"))
	if err != nil {
		return err
	}
	defer r.Close()

	rep, err := r.render(ctx, line)
	if err != nil {
		return err
	}
	if verify {
		if err := r.verify(ctx, rep); err != nil {
			return err
		}
	}

	if reporter, ok := reporters[reportFormat]; ok {
		data, err := reporter.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, strings.TrimSuffix(display(data), "\n"))
		return err
	}
	for _, doc := range rep.Documents {
		if _, err := fmt.Fprintf(stdout, "%s archive:\n%s\n", doc.label(), doc.Display); err != nil {
			return err
		}
	}
	return nil
}

// readLine returns the first line of r without its line terminator. An
// empty input yields an empty line.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read input")
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
