// Package mime assembles RFC 5322 messages for items that were stored
// without a raw copy, so Type=4 body requests always have something to
// serve.
package mime

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/models"
)

const mimeDateFormat = time.RFC1123Z

type builder struct {
	hostname string
}

func NewBuilder(hostname string) interfaces.MimeBuilder {
	return &builder{hostname: hostname}
}

// Build synthesizes a minimal but well-formed message from the stored
// fields: plain text only as text/plain, both bodies as
// multipart/alternative, parts base64-encoded.
func (b *builder) Build(item *models.Email) ([]byte, error) {
	if item == nil {
		return nil, errors.New("mime: nil item")
	}
	if item.HasRawMime() {
		return item.RawMime, nil
	}

	buffer := bytes.NewBuffer(nil)
	headers := b.prepareHeaders(item)

	var err error
	if item.HasHTML() {
		err = b.buildMultipartMessage(item, headers, buffer)
	} else {
		err = b.buildPlainTextMessage(item, headers, buffer)
	}
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (b *builder) prepareHeaders(item *models.Email) map[string]string {
	messageID := item.MessageID
	if messageID == "" {
		messageID = fmt.Sprintf("<%d@%s>", item.ID, b.hostname)
	}
	date := item.ReceivedAt
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return map[string]string{
		"From":         formatAddressHeader(item.FromAddress),
		"To":           formatAddressHeader(item.ToAddress),
		"Subject":      encodeHeaderValue(item.Subject),
		"Date":         date.Format(mimeDateFormat),
		"Message-ID":   messageID,
		"MIME-Version": "1.0",
	}
}

func (b *builder) buildMultipartMessage(item *models.Email, headers map[string]string, buffer *bytes.Buffer) error {
	writer := multipart.NewWriter(buffer)
	if err := writer.SetBoundary(messageBoundary(item)); err != nil {
		return errors.Wrap(err, "mime: set boundary")
	}
	headers["Content-Type"] = "multipart/alternative; boundary=" + writer.Boundary()

	writeHeaders(headers, buffer)

	if item.BodyText != "" {
		if err := addPart(writer, "text/plain; charset=UTF-8", item.BodyText); err != nil {
			return err
		}
	}
	if err := addPart(writer, "text/html; charset=UTF-8", item.BodyHTML); err != nil {
		return err
	}
	return writer.Close()
}

func (b *builder) buildPlainTextMessage(item *models.Email, headers map[string]string, buffer *bytes.Buffer) error {
	headers["Content-Type"] = "text/plain; charset=UTF-8"
	headers["Content-Transfer-Encoding"] = "base64"
	writeHeaders(headers, buffer)
	writeBase64(buffer, []byte(item.BodyText))
	return nil
}

func addPart(writer *multipart.Writer, contentType, body string) error {
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return errors.Wrap(err, "mime: create part")
	}
	var buf bytes.Buffer
	writeBase64(&buf, []byte(body))
	_, err = part.Write(buf.Bytes())
	return err
}

// messageBoundary derives the multipart boundary from the item itself, so
// rebuilding the same message yields identical bytes.
func messageBoundary(item *models.Email) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s", item.ID, item.MessageID)
	return fmt.Sprintf("=_part_%016x", h.Sum64())
}

// encodeHeaderValue wraps non-ASCII values as RFC 2047 encoded-words so the
// header block stays 7-bit clean.
func encodeHeaderValue(v string) string {
	if isASCII(v) {
		return v
	}
	return mime.QEncoding.Encode("utf-8", v)
}

// formatAddressHeader re-renders address lists so non-ASCII display names
// become encoded-words while the addr-spec is left alone.
func formatAddressHeader(v string) string {
	if isASCII(v) {
		return v
	}
	addrs, err := mail.ParseAddressList(v)
	if err != nil {
		return v
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// writeHeaders emits headers in a stable order so the same item always
// produces the same bytes.
func writeHeaders(headers map[string]string, buffer *bytes.Buffer) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if headers[k] == "" {
			continue
		}
		fmt.Fprintf(buffer, "%s: %s\r\n", k, headers[k])
	}
	buffer.WriteString("\r\n")
}

// writeBase64 wraps encoded output at 76 columns per RFC 2045.
func writeBase64(buffer *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		buffer.WriteString(encoded[:76])
		buffer.WriteString("\r\n")
		encoded = encoded[76:]
	}
	if len(encoded) > 0 {
		buffer.WriteString(encoded)
		buffer.WriteString("\r\n")
	}
}
