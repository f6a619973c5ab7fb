// Package wbxml implements the WBXML 1.3 subset used by Exchange
// ActiveSync: tag tokens with codepage switching, inline strings, opaque
// data and multi-byte lengths. Documents are always UTF-8 with an empty
// string table.
package wbxml

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Control tokens.
const (
	tokenSwitchPage byte = 0x00
	tokenEnd        byte = 0x01
	tokenEntity     byte = 0x02
	tokenStrI       byte = 0x03
	tokenOpaque     byte = 0xC3

	// Tag modifier bits. Attributes are not used by ActiveSync.
	flagContent    byte = 0x40
	flagAttributes byte = 0x80
)

// Fixed header for every ActiveSync document.
const (
	headerVersion  byte = 0x03 // WBXML 1.3
	headerPublicID byte = 0x01
	headerCharset  byte = 0x6A // UTF-8
	headerStrTable byte = 0x00
)

var (
	ErrBadHeader        = errors.New("wbxml: unexpected document header")
	ErrUnknownCodepage  = errors.New("wbxml: codepage not registered")
	ErrUnknownToken     = errors.New("wbxml: token not registered in codepage")
	ErrInvalidString    = errors.New("wbxml: inline string is not valid UTF-8")
	ErrTruncated        = errors.New("wbxml: document truncated")
	ErrUnexpectedEnd    = errors.New("wbxml: END without matching start tag")
	ErrUnclosedElements = errors.New("wbxml: document ended with open elements")
	ErrAttributesUnused = errors.New("wbxml: attribute bit set, not supported by ActiveSync")
	ErrMBUintOverflow   = errors.New("wbxml: multi-byte integer exceeds 32 bits")
)

// Tag identifies an element by codepage and token id (without modifier bits).
type Tag struct {
	Page  byte
	Token byte
}

func (t Tag) String() string {
	if name := TagName(t.Page, t.Token); !strings.HasPrefix(name, "0x") {
		return name
	}
	return hexTagName(t.Page, t.Token)
}

func hexTagName(page, token byte) string {
	return fmt.Sprintf("0x%02X:0x%02X", page, token&0x3F)
}

// appendMBUint appends v as a big-endian multi-byte unsigned integer:
// 7-bit groups, high bit set on all but the last byte.
func appendMBUint(dst []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte(v & 0x7F)
		v >>= 7
		if v == 0 {
			break
		}
	}
	for j := i; j < len(tmp)-1; j++ {
		tmp[j] |= 0x80
	}
	return append(dst, tmp[i:]...)
}

// readMBUint consumes a multi-byte unsigned integer from data starting at
// off and returns the value and the next offset.
func readMBUint(data []byte, off int) (uint32, int, error) {
	var v uint32
	for i := 0; ; i++ {
		if off >= len(data) {
			return 0, off, ErrTruncated
		}
		if i == 5 {
			return 0, off, ErrMBUintOverflow
		}
		b := data[off]
		off++
		if v > 0x01FFFFFF {
			// Another 7-bit group would push past 32 bits.
			return 0, off, ErrMBUintOverflow
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, off, nil
		}
	}
}

// HexDump renders a WBXML payload for debug logs, 16 bytes per row.
func HexDump(data []byte) string {
	var sb strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "%04x ", i)
		for j := i; j < end; j++ {
			fmt.Fprintf(&sb, " %02x", data[j])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
