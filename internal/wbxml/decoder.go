package wbxml

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// EventKind discriminates the decoder's event union.
type EventKind int

const (
	EventStartElement EventKind = iota
	EventEndElement
	EventText
	EventOpaque
)

// Event is one decoded WBXML occurrence. StartElement events carry the tag
// and whether the element was written content-less; Text and Opaque carry
// their payloads.
type Event struct {
	Kind   EventKind
	Tag    Tag
	Empty  bool
	Text   string
	Opaque []byte
}

// Decoder walks a WBXML document as a typed event stream.
type Decoder struct {
	data  []byte
	off   int
	page  byte
	depth int
	// queued END event for content-less elements
	pendingEnd bool
	pendingTag Tag
}

// NewDecoder validates the four header bytes and positions the decoder at
// the document element.
func NewDecoder(data []byte) (*Decoder, error) {
	if len(data) < 4 {
		return nil, ErrTruncated
	}
	if data[0] != headerVersion || data[1] != headerPublicID ||
		data[2] != headerCharset || data[3] != headerStrTable {
		return nil, errors.Wrapf(ErrBadHeader, "% x", data[:4])
	}
	return &Decoder{data: data, off: 4}, nil
}

// Next returns the next event. io semantics: (nil, nil) signals a clean end
// of document; any malformed input yields a specific error.
func (d *Decoder) Next() (*Event, error) {
	if d.pendingEnd {
		d.pendingEnd = false
		return &Event{Kind: EventEndElement, Tag: d.pendingTag}, nil
	}
	for {
		if d.off >= len(d.data) {
			if d.depth != 0 {
				return nil, errors.Wrapf(ErrUnclosedElements, "%d open", d.depth)
			}
			return nil, nil
		}
		b := d.data[d.off]
		d.off++

		switch b {
		case tokenSwitchPage:
			if d.off >= len(d.data) {
				return nil, ErrTruncated
			}
			d.page = d.data[d.off]
			d.off++
			continue

		case tokenEnd:
			if d.depth == 0 {
				return nil, ErrUnexpectedEnd
			}
			d.depth--
			return &Event{Kind: EventEndElement}, nil

		case tokenStrI:
			start := d.off
			for {
				if d.off >= len(d.data) {
					return nil, ErrTruncated
				}
				if d.data[d.off] == 0x00 {
					break
				}
				d.off++
			}
			s := string(d.data[start:d.off])
			d.off++
			if !utf8.ValidString(s) {
				return nil, ErrInvalidString
			}
			return &Event{Kind: EventText, Text: s}, nil

		case tokenOpaque:
			n, next, err := readMBUint(d.data, d.off)
			if err != nil {
				return nil, err
			}
			d.off = next
			if d.off+int(n) > len(d.data) {
				return nil, errors.Wrapf(ErrTruncated, "opaque length %d overruns buffer", n)
			}
			payload := d.data[d.off : d.off+int(n)]
			d.off += int(n)
			return &Event{Kind: EventOpaque, Opaque: payload}, nil

		case tokenEntity:
			// Entities never occur in ActiveSync traffic; an entity here
			// means the payload is not ours.
			return nil, errors.Wrap(ErrUnknownToken, "entity token")

		default:
			if b&flagAttributes != 0 {
				return nil, ErrAttributesUnused
			}
			tag := Tag{Page: d.page, Token: b & 0x3F}
			cp, ok := ActiveSyncTags[d.page]
			if !ok {
				return nil, errors.Wrapf(ErrUnknownCodepage, "page 0x%02X (%s)", d.page, PageNames[d.page])
			}
			if _, ok := cp[tag.Token]; !ok {
				return nil, errors.Wrapf(ErrUnknownToken, "%s", hexTagName(d.page, b))
			}
			if b&flagContent != 0 {
				d.depth++
				return &Event{Kind: EventStartElement, Tag: tag}, nil
			}
			// Content-less element: synthesize the matching end event.
			d.pendingEnd = true
			d.pendingTag = tag
			return &Event{Kind: EventStartElement, Tag: tag, Empty: true}, nil
		}
	}
}

// Node is a decoded element tree, the convenient form for command parsing.
// Text and Opaque carry mixed content; ActiveSync elements hold at most one
// of children, text or opaque data.
type Node struct {
	Tag      Tag
	Empty    bool
	Text     string
	Opaque   []byte
	Children []*Node
}

// Parse decodes a full document into its root element.
func Parse(data []byte) (*Node, error) {
	d, err := NewDecoder(data)
	if err != nil {
		return nil, err
	}
	ev, err := d.Next()
	if err != nil {
		return nil, err
	}
	if ev == nil || ev.Kind != EventStartElement {
		return nil, errors.Wrap(ErrTruncated, "missing document element")
	}
	root, err := d.parseElement(ev)
	if err != nil {
		return nil, err
	}
	tail, err := d.Next()
	if err != nil {
		return nil, err
	}
	if tail != nil {
		return nil, errors.Wrap(ErrUnexpectedEnd, "trailing content after document element")
	}
	return root, nil
}

func (d *Decoder) parseElement(start *Event) (*Node, error) {
	n := &Node{Tag: start.Tag, Empty: start.Empty}
	for {
		ev, err := d.Next()
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, errors.Wrapf(ErrUnclosedElements, "inside <%s>", n.Tag)
		}
		switch ev.Kind {
		case EventEndElement:
			return n, nil
		case EventText:
			n.Text += ev.Text
		case EventOpaque:
			n.Opaque = append(n.Opaque, ev.Opaque...)
		case EventStartElement:
			child, err := d.parseElement(ev)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}
}

// Child returns the first direct child with the given tag, or nil.
func (n *Node) Child(tag Tag) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildText returns the text of the first direct child with the given tag.
func (n *Node) ChildText(tag Tag) string {
	if c := n.Child(tag); c != nil {
		return c.Text
	}
	return ""
}

// HasChild reports whether a direct child with the given tag exists,
// including content-less ones like <GetChanges/>.
func (n *Node) HasChild(tag Tag) bool {
	return n.Child(tag) != nil
}

// EachChild visits direct children with the given tag.
func (n *Node) EachChild(tag Tag, fn func(*Node)) {
	for _, c := range n.Children {
		if c.Tag == tag {
			fn(c)
		}
	}
}
