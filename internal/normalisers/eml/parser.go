// Package eml parses RFC 822 email files into newsletters.
package eml

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/normalisers/html"
)

// Extension is the file extension of importable messages.
const Extension = ".eml"

// idNamespace scopes newsletter IDs derived from messages.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("postsmith:newsletter"))

// Parser turns email messages into newsletters.
type Parser struct {
	now func() time.Time
}

// New creates a new EML parser.
func New() *Parser {
	return &Parser{now: time.Now}
}

// Parse reads one message. The newsletter ID is derived from the owner and
// the Message-ID header, or from the raw bytes when there is none, so
// parsing the same file twice yields the same ID. name is the file name and
// stands in for a missing subject.
func (p *Parser) Parse(raw []byte, ownerID, name string) (domain.Newsletter, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Newsletter{}, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return domain.Newsletter{}, fmt.Errorf("%w: read message: %w", domain.ErrInvalidInput, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	if subject == "" {
		subject = titleFromName(name)
	}

	var date time.Time
	if d, err := msg.Header.Date(); err == nil {
		date = d.UTC()
	}

	body, err := extractBody(msg.Header, msg.Body)
	if err != nil {
		return domain.Newsletter{}, err
	}

	return domain.Newsletter{
		ID:        newsletterID(ownerID, msg.Header.Get("Message-Id"), raw),
		OwnerID:   ownerID,
		Subject:   subject,
		From:      decodeHeader(msg.Header.Get("From")),
		Date:      date,
		Body:      strings.TrimSpace(body),
		CreatedAt: p.now().UTC(),
	}, nil
}

func newsletterID(ownerID, messageID string, raw []byte) string {
	key := []byte(ownerID + "\x00")
	if id := strings.TrimSpace(messageID); id != "" {
		key = append(key, id...)
	} else {
		key = append(key, raw...)
	}
	return "nl_" + uuid.NewSHA1(idNamespace, key).String()
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return strings.TrimSpace(decoded)
}

// headers is satisfied by both mail.Header and textproto.MIMEHeader.
type headers interface {
	Get(key string) string
}

// extractBody returns the readable text of a message or part.
func extractBody(h headers, r io.Reader) (string, error) {
	contentType := h.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(r, params["boundary"])
	}

	content, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), r))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", domain.ErrInvalidInput, err)
	}

	switch mediaType {
	case "text/html":
		return html.Text(string(content)), nil
	case "text/plain":
		return string(content), nil
	default:
		return "", nil
	}
}

// extractMultipartBody prefers plain text parts and falls back to HTML.
func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF ends the message; anything else is a truncated part.
			break
		}
		if part.FileName() != "" {
			part.Close()
			continue
		}

		mediaType, _, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "text/plain"
		}

		text, err := extractBody(part.Header, part)
		part.Close()
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		switch {
		case mediaType == "text/html":
			htmlParts = append(htmlParts, text)
		default:
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

// decodeTransfer undoes base64 and quoted-printable encodings. Multipart
// readers already decode quoted-printable parts and drop the header.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// titleFromName turns a file name into a readable subject.
func titleFromName(name string) string {
	filename := filepath.Base(name)
	if filename == "." || filename == "/" {
		return ""
	}
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
