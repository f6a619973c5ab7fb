package wbxml

import (
	"bytes"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Encoder builds a WBXML document. Start tags are emitted lazily: a tag is
// held on the stack until either content arrives (then it is written with
// the content bit) or it is closed immediately (then it is written without
// the content bit and no END byte follows). SWITCH_PAGE is only written
// when the next emitted tag lives on a different codepage.
type Encoder struct {
	buf   bytes.Buffer
	page  byte
	stack []encFrame
	err   error
}

type encFrame struct {
	tag     Tag
	emitted bool
}

func NewEncoder() *Encoder {
	e := &Encoder{}
	e.buf.WriteByte(headerVersion)
	e.buf.WriteByte(headerPublicID)
	e.buf.WriteByte(headerCharset)
	e.buf.WriteByte(headerStrTable)
	return e
}

// StartTag opens an element. Emission is deferred until content or a
// closing EndTag decides the content bit.
func (e *Encoder) StartTag(tag Tag) *Encoder {
	if e.err != nil {
		return e
	}
	if tag.Token&(flagContent|flagAttributes) != 0 {
		e.err = errors.Wrapf(ErrUnknownToken, "token 0x%02X carries modifier bits", tag.Token)
		return e
	}
	e.stack = append(e.stack, encFrame{tag: tag})
	return e
}

// EndTag closes the innermost element. An element closed without content is
// written as a content-less tag.
func (e *Encoder) EndTag() *Encoder {
	if e.err != nil {
		return e
	}
	if len(e.stack) == 0 {
		e.err = ErrUnexpectedEnd
		return e
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	if !top.emitted {
		// The empty element is content of its ancestors.
		e.flushOpen()
		e.switchPage(top.tag.Page)
		e.buf.WriteByte(top.tag.Token)
		return e
	}
	e.buf.WriteByte(tokenEnd)
	return e
}

// Text writes an inline null-terminated UTF-8 string.
func (e *Encoder) Text(s string) *Encoder {
	if e.err != nil {
		return e
	}
	if !utf8.ValidString(s) {
		e.err = ErrInvalidString
		return e
	}
	e.flushOpen()
	e.buf.WriteByte(tokenStrI)
	e.buf.WriteString(s)
	e.buf.WriteByte(0x00)
	return e
}

// Opaque writes a length-prefixed binary payload.
func (e *Encoder) Opaque(data []byte) *Encoder {
	if e.err != nil {
		return e
	}
	e.flushOpen()
	e.buf.WriteByte(tokenOpaque)
	e.buf.Write(appendMBUint(nil, uint32(len(data))))
	e.buf.Write(data)
	return e
}

// TextTag writes <tag>value</tag> in one call.
func (e *Encoder) TextTag(tag Tag, value string) *Encoder {
	return e.StartTag(tag).Text(value).EndTag()
}

// EmptyTag writes a content-less element.
func (e *Encoder) EmptyTag(tag Tag) *Encoder {
	return e.StartTag(tag).EndTag()
}

// Bytes finalizes the document. It fails if elements remain open or any
// earlier call recorded an error.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.stack) != 0 {
		return nil, errors.Wrapf(ErrUnclosedElements, "%d open", len(e.stack))
	}
	return e.buf.Bytes(), nil
}

// Err exposes the first error recorded by the fluent calls.
func (e *Encoder) Err() error {
	return e.err
}

// flushOpen writes any still-pending start tags with the content bit set,
// outermost first.
func (e *Encoder) flushOpen() {
	for i := range e.stack {
		if e.stack[i].emitted {
			continue
		}
		e.switchPage(e.stack[i].tag.Page)
		e.buf.WriteByte(e.stack[i].tag.Token | flagContent)
		e.stack[i].emitted = true
	}
}

func (e *Encoder) switchPage(page byte) {
	if page == e.page {
		return
	}
	e.buf.WriteByte(tokenSwitchPage)
	e.buf.WriteByte(page)
	e.page = page
}
