package main

import (
	"encoding/hex"
	"strings"
)

// printable reports whether every byte is printable ASCII or whitespace.
func printable(b []byte) bool {
	for _, c := range b {
		switch {
		case c >= 0x20 && c <= 0x7e:
		case c == ' ', c == '\t', c == '\n', c == '\v', c == '\f', c == '\r':
		default:
			return false
		}
	}
	return true
}

// display returns b verbatim when it is printable, else as uppercase hex.
func display(b []byte) string {
	if printable(b) {
		return string(b)
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
