package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lk2023060901/archive-go/internal/json"
)

func TestDisplay(t *testing.T) {
	assert.Equal(t, "hello\tworld\n", display([]byte("hello\tworld\n")))
	assert.Equal(t, "", display(nil))
	assert.Equal(t, "0001FF", display([]byte{0x00, 0x01, 0xff}))
	assert.Equal(t, "C3A9", display([]byte("é")))
	assert.Equal(t, "617F", display([]byte{'a', 0x7f}))
	assert.True(t, printable([]byte(" ~\v\f\r")))
}

func TestReadLine(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"hello":         "hello",
		"hello\n":       "hello",
		"hello\r\nnext": "hello",
	}
	for in, want := range cases {
		got, err := readLine(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func exec(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("ARCHIVE_CONFIG_FILE_PATH", "")
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestHelp(t *testing.T) {
	code, stdout, _ := exec(t, "", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Allowed options:")
	assert.Contains(t, stdout, "--interactive")
	assert.Contains(t, stdout, "--config")
}

func TestBadFlag(t *testing.T) {
	code, _, stderr := exec(t, "", "--bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error:")

	code, _, stderr = exec(t, "", "--report", "toml")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported report format")
}

func TestNotInteractive(t *testing.T) {
	code, stdout, _ := exec(t, "ignored\n")
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
}

func TestInteractive(t *testing.T) {
	code, stdout, stderr := exec(t, "hello\n", "--interactive", "--verify")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "JSON archive:\n{\n    \"input\": \"hello\"\n}\n")
	assert.Contains(t, stdout, "XML archive:\n")
	assert.Contains(t, stdout, "<input>hello</input>")

	hexLine := regexp.MustCompile(`(?m)^Binary archive:\n([0-9A-F]+)$`)
	m := hexLine.FindStringSubmatch(stdout)
	require.Len(t, m, 2)
	assert.True(t, strings.HasSuffix(m[1], "68656C6C6F"))

	assert.Regexp(t, `(?m)^Portable binary archive:\n01[0-9A-F]+68656C6C6F$`, stdout)
}

func TestReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
formats: [json, portable]
envelope:
  enable: true
  compress: true
  min_compress_size: 1024
`), 0o600))

	code, stdout, stderr := exec(t, "ünïcode\n", "-i", "--config", path, "--report", "json", "--verify")
	require.Equal(t, 0, code, stderr)

	var rep struct {
		Input     string `json:"input"`
		Documents []struct {
			Format  string `json:"format"`
			Bytes   int    `json:"bytes"`
			Sealed  bool   `json:"sealed"`
			Display string `json:"display"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, "ünïcode", rep.Input)
	require.Len(t, rep.Documents, 2)
	assert.Equal(t, "json", rep.Documents[0].Format)
	assert.Equal(t, "portable", rep.Documents[1].Format)
	for _, doc := range rep.Documents {
		assert.True(t, doc.Sealed)
		assert.Greater(t, doc.Bytes, 0)
		// frames start with the "ARCV" magic
		assert.True(t, strings.HasPrefix(doc.Display, "41524356"), doc.Display)
	}
}

func TestReportYAMLAndMsgpack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.yaml")
	require.NoError(t, os.WriteFile(path, []byte("formats: [json]\n"), 0o600))

	code, stdout, stderr := exec(t, "hi\n", "-i", "--config", path, "--report", "yaml")
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "input: hi\ndocuments:\n"), stdout)
	assert.Contains(t, stdout, "format: json")

	code, stdout, stderr = exec(t, "hi\n", "-i", "--config", path, "--report", "msgpack")
	require.Equal(t, 0, code, stderr)
	raw, err := hex.DecodeString(strings.TrimSpace(stdout))
	require.NoError(t, err)
	var rep struct {
		Input string `msgpack:"input"`
	}
	require.NoError(t, msgpack.Unmarshal(raw, &rep))
	assert.Equal(t, "hi", rep.Input)
}

func TestBadConfig(t *testing.T) {
	code, _, stderr := exec(t, "x\n", "-i", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error:")
}
