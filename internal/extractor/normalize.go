package extractor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	pdfMagic  = []byte("%PDF-")
	lineBreak = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// ParseFormat maps a declared format string ("txt", ".TXT", "pdf", ...) to a
// Format. Anything else is an *UnsupportedFormatError.
func ParseFormat(declared string) (models.Format, error) {
	s := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(declared), "."))
	switch s {
	case "TXT", "TEXT":
		return models.FormatTXT, nil
	case "XML":
		return models.FormatXML, nil
	case "PDF":
		return models.FormatPDF, nil
	default:
		return "", &UnsupportedFormatError{Format: declared}
	}
}

// FormatFromPath derives the declared format from a file extension.
func FormatFromPath(path string) (models.Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ReadSource reads a report file from disk.
func ReadSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceReadError{Source: path, Err: err}
	}
	return data, nil
}

// Normalize decodes content according to its declared format and returns the
// document as numbered lines. Trailing whitespace is trimmed, control
// characters other than tabs are removed and blank lines are kept.
func Normalize(content []byte, format models.Format) ([]models.Line, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &SourceReadError{Source: "content", Err: ErrEmptySource}
	}

	switch format {
	case models.FormatTXT:
		return splitLines(decodeText(content)), nil
	case models.FormatXML:
		text, err := xmlText(content)
		if err != nil {
			return nil, &SourceReadError{Source: "xml", Err: err}
		}
		return splitLines(text), nil
	case models.FormatPDF:
		if !bytes.HasPrefix(content, pdfMagic) {
			// Text already extracted from the PDF upstream.
			return splitLines(decodeText(content)), nil
		}
		pages, err := ExtractTextFromBytes(content)
		if err != nil {
			return nil, &SourceReadError{Source: "pdf", Err: err}
		}
		return splitLines(strings.Join(pages, "\n")), nil
	default:
		return nil, &UnsupportedFormatError{Format: string(format)}
	}
}

// decodeText returns content as UTF-8. Scanner exports written on Windows are
// frequently CP1252, so invalid UTF-8 is decoded as such.
func decodeText(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return string(content)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "")
	}
	return string(decoded)
}

func splitLines(text string) []models.Line {
	raw := strings.Split(lineBreak.Replace(text), "\n")
	lines := make([]models.Line, 0, len(raw))
	for i, l := range raw {
		lines = append(lines, models.Line{Num: i + 1, Text: cleanLine(l)})
	}
	// A trailing newline does not make an extra line.
	if n := len(lines); n > 0 && lines[n-1].Text == "" && strings.HasSuffix(text, "\n") {
		lines = lines[:n-1]
	}
	return lines
}

func cleanLine(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// xmlText flattens an XML export into text. Character data of each element
// becomes its own run of lines; whitespace-only data between tags is dropped.
// Leading whitespace inside an element is kept. Text of an element nested in
// one that has text of its own, like a status under its fault line, is
// indented.
func xmlText(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = false
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "windows-1252", "cp1252":
			return charmap.Windows1252.NewDecoder().Reader(input), nil
		case "iso-8859-1", "latin1":
			return charmap.ISO8859_1.NewDecoder().Reader(input), nil
		}
		return input, nil
	}

	var b strings.Builder
	// hasText[i] records whether the i-th open element emitted text.
	var hasText []bool
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasText = append(hasText, false)
		case xml.EndElement:
			if len(hasText) > 0 {
				hasText = hasText[:len(hasText)-1]
			}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			depth := len(hasText)
			nested := depth >= 2 && hasText[depth-2]
			if depth > 0 {
				hasText[depth-1] = true
			}
			for _, line := range strings.Split(strings.Trim(lineBreak.Replace(string(t)), "\n"), "\n") {
				if nested && strings.TrimSpace(line) != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
					line = "    " + line
				}
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	if b.Len() == 0 {
		return "", errors.New("xml document has no text content")
	}
	return b.String(), nil
}
