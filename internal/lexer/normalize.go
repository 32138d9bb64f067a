package lexer

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize prepares raw source bytes for lexing: it strips a UTF-8 byte
// order mark if present and applies Unicode NFC normalization, so that
// lexically equivalent source produces an identical token stream
// regardless of the encoding a particular editor or OS wrote ("café" in
// NFC vs NFD must tokenize to the same IDENT). Called once per file,
// before Tokenize.
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}
