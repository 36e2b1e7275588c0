package extract

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"triage_server/core/domain"

	"golang.org/x/text/encoding/htmlindex"
)

const mboxSeparator = "From "

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// MailboxText renders every message of an mbox archive as
// "Assunto: <subject>\n\n<body>" and joins them with domain.MessageDelimiter.
// Blocks that do not parse as a message are kept as raw text.
func MailboxText(data []byte) string {
	var texts []string
	for _, block := range splitMailbox(data) {
		block = bytes.TrimSpace(block)
		if len(block) == 0 {
			continue
		}
		if text := renderMessage(block); text != "" {
			texts = append(texts, text)
		}
	}
	return domain.JoinMessages(texts)
}

// splitMailbox cuts before every line that starts with "From ".
func splitMailbox(data []byte) [][]byte {
	var (
		blocks [][]byte
		start  int
	)
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' && bytes.HasPrefix(data[i+1:], []byte(mboxSeparator)) {
			blocks = append(blocks, data[start:i])
			start = i + 1
		}
	}
	return append(blocks, data[start:])
}

func renderMessage(block []byte) string {
	// Drop the mbox envelope line; it is not a header.
	if bytes.HasPrefix(block, []byte(mboxSeparator)) {
		if nl := bytes.IndexByte(block, '\n'); nl >= 0 {
			block = block[nl+1:]
		} else {
			block = nil
		}
	}

	// Blocks are trimmed; restore the blank line that ends a header-only message.
	msg, err := mail.ReadMessage(bufio.NewReader(io.MultiReader(bytes.NewReader(block), strings.NewReader("\n\n"))))
	if err != nil {
		return strings.TrimSpace(decodeText(block))
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	body, err := messageBody(msg.Header, msg.Body)
	if err != nil {
		body = ""
	}

	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	switch {
	case subject != "" && body != "":
		return fmt.Sprintf("Assunto: %s\n\n%s", subject, body)
	case subject != "":
		return "Assunto: " + subject
	default:
		return body
	}
}

// partHeader is satisfied by mail.Header and textproto.MIMEHeader.
type partHeader interface {
	Get(key string) string
}

// messageBody returns the first non-attachment text/plain part of a
// multipart entity, or the decoded payload of a single-part one.
func messageBody(h partHeader, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType, params = "text/plain", map[string]string{}
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		payload, err := io.ReadAll(transferDecoder(h.Get("Content-Transfer-Encoding"), body))
		if err != nil {
			return "", err
		}
		return decodeCharset(payload, params["charset"]), nil
	}

	text, _, err := firstPlainPart(body, params["boundary"])
	return text, err
}

// firstPlainPart walks nested multipart entities depth first.
func firstPlainPart(body io.Reader, boundary string) (string, bool, error) {
	if boundary == "" {
		return "", false, nil
	}

	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType, params = "text/plain", map[string]string{}
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if text, found, err := firstPlainPart(part, params["boundary"]); found || err != nil {
				return text, found, err
			}
			continue
		}

		disposition := strings.ToLower(part.Header.Get("Content-Disposition"))
		if mediaType != "text/plain" || strings.Contains(disposition, "attachment") {
			continue
		}

		payload, err := io.ReadAll(transferDecoder(part.Header.Get("Content-Transfer-Encoding"), part))
		if err != nil {
			return "", false, err
		}
		return decodeCharset(payload, params["charset"]), true, nil
	}
}

func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// decodeCharset converts payload to UTF-8. Unknown charsets are read as
// UTF-8; invalid sequences are dropped.
func decodeCharset(payload []byte, charset string) string {
	charset = strings.TrimSpace(charset)
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "us-ascii") {
		return decodeText(payload)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return decodeText(payload)
	}
	decoded, err := enc.NewDecoder().Bytes(payload)
	if err != nil {
		return decodeText(payload)
	}
	return decodeText(decoded)
}

func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}
