package activesync

import (
	"context"
	"strconv"
	"strings"

	"github.com/jaytaylor/html2text"

	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/strategy"
	"github.com/syncgate/syncgate/internal/wbxml"
)

// dateReceivedFormat is the ISO-8601 form EAS clients expect, always UTC.
const dateReceivedFormat = "2006-01-02T15:04:05.000Z"

const (
	messageClassNote  = "IPM.Note"
	internetCPIDUTF8  = "65001"
	contentClassEmail = "urn:content-classes:message"
	previewMaxRunes   = 255
)

// projectedBody is one item body resolved against the selected type and
// truncation size.
type projectedBody struct {
	Type          int
	Data          []byte
	EstimatedSize int
	Truncated     bool
	Native        int
	Preview       string
}

// projectBody resolves the item's content for the requested body type,
// falling back to plain text when the item lacks the requested format.
// truncateAt <= 0 means no truncation.
func (s *activeSyncService) projectBody(ctx context.Context, item *models.Email, bodyType, truncateAt int) (projectedBody, error) {
	body := projectedBody{Type: bodyType, Native: nativeBodyType(item)}

	switch bodyType {
	case strategy.BodyTypeMIME:
		raw, err := s.store.BuildOrFetchMime(ctx, item)
		if err != nil {
			return body, err
		}
		body.Data = raw
	case strategy.BodyTypeHTML:
		if item.HasHTML() {
			body.Data = []byte(item.BodyHTML)
		} else {
			body.Type = strategy.BodyTypePlain
			body.Data = []byte(plainText(item))
		}
	default:
		// Plain, and RTF which this store cannot produce.
		body.Type = strategy.BodyTypePlain
		body.Data = []byte(plainText(item))
	}

	body.EstimatedSize = len(body.Data)
	if truncateAt > 0 && len(body.Data) > truncateAt {
		if body.Type == strategy.BodyTypeMIME {
			body.Data = body.Data[:truncateAt]
		} else {
			body.Data = truncateUTF8(body.Data, truncateAt)
		}
		body.Truncated = true
	}
	body.Preview = preview(item)
	return body, nil
}

// appendApplicationData writes the Email and AirSyncBase fields of one item
// in the canonical order clients require.
func appendApplicationData(enc *wbxml.Encoder, item *models.Email, body projectedBody) {
	enc.TextTag(email(wbxml.EmailTo), item.ToAddress).
		TextTag(email(wbxml.EmailFrom), item.FromAddress).
		TextTag(email(wbxml.EmailSubject), item.Subject).
		TextTag(email(wbxml.EmailDateReceived), item.ReceivedAt.UTC().Format(dateReceivedFormat)).
		TextTag(email(wbxml.EmailDisplayTo), item.ToAddress).
		TextTag(email(wbxml.EmailThreadTopic), item.Subject).
		TextTag(email(wbxml.EmailImportance), strconv.Itoa(item.Importance)).
		TextTag(email(wbxml.EmailRead), boolFlag(item.IsRead)).
		TextTag(email(wbxml.EmailMessageClass), messageClassNote).
		TextTag(email(wbxml.EmailInternetCPID), internetCPIDUTF8).
		TextTag(email(wbxml.EmailContentClass), contentClassEmail)

	enc.StartTag(base(wbxml.BaseBody)).
		TextTag(base(wbxml.BaseType), strconv.Itoa(body.Type)).
		TextTag(base(wbxml.BaseEstimatedDataSize), strconv.Itoa(body.EstimatedSize)).
		TextTag(base(wbxml.BaseTruncated), boolFlag(body.Truncated))
	if body.Type == strategy.BodyTypeMIME {
		// MIME is binary-safe only as OPAQUE.
		enc.StartTag(base(wbxml.BaseData)).Opaque(body.Data).EndTag()
	} else {
		enc.TextTag(base(wbxml.BaseData), string(body.Data))
	}
	enc.EndTag() // Body

	if body.Type != strategy.BodyTypeMIME && body.Preview != "" {
		enc.TextTag(base(wbxml.BasePreview), body.Preview)
	}
	enc.TextTag(base(wbxml.BaseNativeBodyType), strconv.Itoa(body.Native))
}

func nativeBodyType(item *models.Email) int {
	switch {
	case item.HasRawMime():
		return strategy.BodyTypeMIME
	case item.HasHTML():
		return strategy.BodyTypeHTML
	default:
		return strategy.BodyTypePlain
	}
}

// plainText returns the item's plain body, deriving one from HTML when the
// stored text is empty.
func plainText(item *models.Email) string {
	if item.BodyText != "" {
		return item.BodyText
	}
	if item.HasHTML() {
		text, err := html2text.FromString(item.BodyHTML, html2text.Options{TextOnly: true})
		if err == nil {
			return text
		}
	}
	return ""
}

// preview is a whitespace-collapsed snippet of at most 255 runes.
func preview(item *models.Email) string {
	text := strings.Join(strings.Fields(plainText(item)), " ")
	runes := []rune(text)
	if len(runes) > previewMaxRunes {
		return string(runes[:previewMaxRunes])
	}
	return text
}

// truncateUTF8 cuts at the last rune boundary at or before n so STR_I
// payloads stay valid UTF-8.
func truncateUTF8(data []byte, n int) []byte {
	if n >= len(data) {
		return data
	}
	for n > 0 && data[n]&0xC0 == 0x80 {
		n--
	}
	return data[:n]
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
