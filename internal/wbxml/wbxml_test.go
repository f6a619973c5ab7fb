package wbxml

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMBUintRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 512000, 0xFFFFFFFF}
	for _, v := range values {
		buf := appendMBUint(nil, v)
		got, off, err := readMBUint(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), off)
	}
}

func TestMBUintOverflowDetected(t *testing.T) {
	// Five groups whose significant bits need 33: 0x10 << 28.
	_, _, err := readMBUint([]byte{0x90, 0x80, 0x80, 0x80, 0x00}, 0)
	assert.ErrorIs(t, err, ErrMBUintOverflow)
	// All 35 bits set.
	_, _, err = readMBUint([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, 0)
	assert.ErrorIs(t, err, ErrMBUintOverflow)
	// A sixth group is rejected outright.
	_, _, err = readMBUint([]byte{0x81, 0x80, 0x80, 0x80, 0x80, 0x00}, 0)
	assert.ErrorIs(t, err, ErrMBUintOverflow)
}

func TestMBUintEncoding(t *testing.T) {
	// 0x81 0x20 is the canonical mb-u-int32 example for 0xA0.
	assert.Equal(t, []byte{0x81, 0x20}, appendMBUint(nil, 0xA0))
	assert.Equal(t, []byte{0x00}, appendMBUint(nil, 0))
}

func TestEncoderHeader(t *testing.T) {
	out, err := NewEncoder().
		StartTag(Tag{PageAirSync, AirSyncSync}).
		EndTag().
		Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x01, 0x6A, 0x00, AirSyncSync}, out)
}

func TestEncoderContentBitAndEnd(t *testing.T) {
	out, err := NewEncoder().
		StartTag(Tag{PageAirSync, AirSyncSync}).
		TextTag(Tag{PageAirSync, AirSyncStatus}, "1").
		EndTag().
		Bytes()
	require.NoError(t, err)
	want := []byte{
		0x03, 0x01, 0x6A, 0x00,
		AirSyncSync | 0x40,
		AirSyncStatus | 0x40,
		0x03, '1', 0x00,
		0x01, // END Status
		0x01, // END Sync
	}
	assert.Equal(t, want, out)
}

func TestEncoderEmptyElementHasNoContentBit(t *testing.T) {
	out, err := NewEncoder().
		StartTag(Tag{PageAirSync, AirSyncCollection}).
		EmptyTag(Tag{PageAirSync, AirSyncMoreAvailable}).
		EndTag().
		Bytes()
	require.NoError(t, err)
	want := []byte{
		0x03, 0x01, 0x6A, 0x00,
		AirSyncCollection | 0x40,
		AirSyncMoreAvailable, // no content bit, no END
		0x01,
	}
	assert.Equal(t, want, out)
}

func TestEncoderMinimalPageSwitches(t *testing.T) {
	out, err := NewEncoder().
		StartTag(Tag{PageAirSync, AirSyncApplicationData}).
		TextTag(Tag{PageEmail, EmailSubject}, "a").
		TextTag(Tag{PageEmail, EmailDisplayTo}, "b").
		TextTag(Tag{PageAirSyncBase, BaseNativeBodyType}, "2").
		EndTag().
		Bytes()
	require.NoError(t, err)

	switches := 0
	for i := 4; i < len(out); i++ {
		if out[i] == tokenSwitchPage {
			switches++
			i++ // skip page byte
		} else if out[i] == tokenStrI {
			for out[i] != 0x00 {
				i++
			}
		}
	}
	// AirSync -> Email once, Email -> AirSyncBase once.
	assert.Equal(t, 2, switches)
}

func TestEncoderRejectsUnbalancedDocument(t *testing.T) {
	e := NewEncoder().StartTag(Tag{PageAirSync, AirSyncSync})
	_, err := e.Bytes()
	assert.ErrorIs(t, errors.Cause(err), ErrUnclosedElements)

	e = NewEncoder()
	e.EndTag()
	assert.ErrorIs(t, e.Err(), ErrUnexpectedEnd)
}

func TestDecoderRejectsBadHeader(t *testing.T) {
	_, err := NewDecoder([]byte{0x02, 0x01, 0x6A, 0x00, 0x45})
	assert.ErrorIs(t, errors.Cause(err), ErrBadHeader)

	_, err = NewDecoder([]byte{0x03, 0x01})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecoderRejectsUnknownCodepage(t *testing.T) {
	doc := []byte{0x03, 0x01, 0x6A, 0x00, tokenSwitchPage, PageSettings, 0x45}
	d, err := NewDecoder(doc)
	require.NoError(t, err)
	_, err = d.Next()
	assert.ErrorIs(t, errors.Cause(err), ErrUnknownCodepage)
}

func TestDecoderRejectsOpaqueOverrun(t *testing.T) {
	doc := []byte{0x03, 0x01, 0x6A, 0x00, AirSyncSync | 0x40, tokenOpaque, 0x10, 0xAA}
	d, err := NewDecoder(doc)
	require.NoError(t, err)
	_, err = d.Next() // Sync start
	require.NoError(t, err)
	_, err = d.Next()
	assert.ErrorIs(t, errors.Cause(err), ErrTruncated)
}

func TestDecoderRejectsStrayEnd(t *testing.T) {
	doc := []byte{0x03, 0x01, 0x6A, 0x00, tokenEnd}
	d, err := NewDecoder(doc)
	require.NoError(t, err)
	_, err = d.Next()
	assert.ErrorIs(t, err, ErrUnexpectedEnd)
}

func TestDecoderRejectsInvalidUTF8(t *testing.T) {
	doc := []byte{0x03, 0x01, 0x6A, 0x00, AirSyncSync | 0x40, tokenStrI, 0xFF, 0xFE, 0x00, tokenEnd}
	d, err := NewDecoder(doc)
	require.NoError(t, err)
	_, err = d.Next()
	require.NoError(t, err)
	_, err = d.Next()
	assert.ErrorIs(t, err, ErrInvalidString)
}

func TestParseTree(t *testing.T) {
	out, err := NewEncoder().
		StartTag(Tag{PageAirSync, AirSyncSync}).
		StartTag(Tag{PageAirSync, AirSyncCollections}).
		StartTag(Tag{PageAirSync, AirSyncCollection}).
		TextTag(Tag{PageAirSync, AirSyncSyncKey}, "0").
		TextTag(Tag{PageAirSync, AirSyncCollectionId}, "1").
		EmptyTag(Tag{PageAirSync, AirSyncGetChanges}).
		EndTag().
		EndTag().
		EndTag().
		Bytes()
	require.NoError(t, err)

	root, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, Tag{PageAirSync, AirSyncSync}, root.Tag)

	coll := root.Child(Tag{PageAirSync, AirSyncCollections}).Child(Tag{PageAirSync, AirSyncCollection})
	require.NotNil(t, coll)
	assert.Equal(t, "0", coll.ChildText(Tag{PageAirSync, AirSyncSyncKey}))
	assert.Equal(t, "1", coll.ChildText(Tag{PageAirSync, AirSyncCollectionId}))
	assert.True(t, coll.HasChild(Tag{PageAirSync, AirSyncGetChanges}))
	assert.False(t, coll.HasChild(Tag{PageAirSync, AirSyncWindowSize}))
}

// reencode replays a decoded event stream through a fresh encoder.
func reencode(t *testing.T, doc []byte) []byte {
	t.Helper()
	d, err := NewDecoder(doc)
	require.NoError(t, err)
	e := NewEncoder()
	for {
		ev, err := d.Next()
		require.NoError(t, err)
		if ev == nil {
			break
		}
		switch ev.Kind {
		case EventStartElement:
			e.StartTag(ev.Tag)
		case EventEndElement:
			e.EndTag()
		case EventText:
			e.Text(ev.Text)
		case EventOpaque:
			e.Opaque(ev.Opaque)
		}
	}
	out, err := e.Bytes()
	require.NoError(t, err)
	return out
}

func TestCodecRoundTripIsByteIdentical(t *testing.T) {
	docs := map[string][]byte{
		"folder hierarchy": mustBytes(t, NewEncoder().
			StartTag(Tag{PageFolderHierarchy, FolderFolderSync}).
			TextTag(Tag{PageFolderHierarchy, FolderStatus}, "1").
			TextTag(Tag{PageFolderHierarchy, FolderSyncKey}, "1").
			StartTag(Tag{PageFolderHierarchy, FolderChanges}).
			TextTag(Tag{PageFolderHierarchy, FolderCount}, "1").
			StartTag(Tag{PageFolderHierarchy, FolderAdd}).
			TextTag(Tag{PageFolderHierarchy, FolderServerId}, "1").
			TextTag(Tag{PageFolderHierarchy, FolderParentId}, "0").
			TextTag(Tag{PageFolderHierarchy, FolderDisplayName}, "Inbox").
			TextTag(Tag{PageFolderHierarchy, FolderType}, "2").
			EndTag().
			EndTag().
			EndTag()),
		"mixed pages with opaque": mustBytes(t, NewEncoder().
			StartTag(Tag{PageAirSync, AirSyncSync}).
			StartTag(Tag{PageAirSync, AirSyncApplicationData}).
			TextTag(Tag{PageEmail, EmailSubject}, "héllo ✉").
			StartTag(Tag{PageAirSyncBase, BaseBody}).
			TextTag(Tag{PageAirSyncBase, BaseType}, "4").
			StartTag(Tag{PageAirSyncBase, BaseData}).
			Opaque([]byte{0x00, 0x01, 0xFF, 0xC3}).
			EndTag().
			EndTag().
			EmptyTag(Tag{PageAirSync, AirSyncMoreAvailable}).
			EndTag().
			EndTag()),
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			assert.True(t, bytes.Equal(doc, reencode(t, doc)))
		})
	}
}

func mustBytes(t *testing.T, e *Encoder) []byte {
	t.Helper()
	out, err := e.Bytes()
	require.NoError(t, err)
	return out
}

func TestTagName(t *testing.T) {
	assert.Equal(t, "SyncKey", TagName(PageAirSync, AirSyncSyncKey))
	assert.Equal(t, "Body", TagName(PageAirSyncBase, BaseBody))
	assert.Equal(t, "0x12:0x3F", TagName(PageSettings, 0x3F))
}
