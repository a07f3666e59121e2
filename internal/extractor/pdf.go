package extractor

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads a PDF file and returns the text content of each page.
// If the structured PDF library yields nothing readable it falls back to the
// external pdftotext command (poppler-utils).
func ExtractText(filePath string) ([]string, error) {
	pages, libErr := extractFromFile(filePath)
	if libErr == nil && isReadableText(pages) {
		return pages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(filePath)
	if popplerErr == nil && isReadableText(popplerPages) {
		return popplerPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %w", libErr)
	}
	return nil, fmt.Errorf("no readable diagnostic text could be extracted from PDF; export the scan as plain text instead")
}

// ExtractTextFromBytes extracts page text from an in-memory PDF.
func ExtractTextFromBytes(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	pages, err = extractPages(r)
	if err != nil {
		return nil, err
	}
	if !isReadableText(pages) {
		return nil, fmt.Errorf("no readable diagnostic text in PDF")
	}
	return pages, nil
}

func extractFromFile(filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return extractPages(r)
}

// extractPages tries row-based extraction first since it keeps the report's
// line layout, then coordinate grouping, then the whole-document plain text.
func extractPages(r *pdf.Reader) ([]string, error) {
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	if pages := extractByRow(r, numPages); isReadableText(pages) {
		return pages, nil
	}
	if pages := extractByContent(r, numPages); isReadableText(pages) {
		return pages, nil
	}
	if text := extractByReaderPlainText(r); isReadableText([]string{text}) {
		return []string{text}, nil
	}
	return nil, fmt.Errorf("PDF text layer is empty or unreadable")
}

// extractByRow joins each row's words. A row whose first word starts right
// of the page's left margin is indented, as in extractByContent.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}

		minX := math.MaxFloat64
		for _, row := range rows {
			for _, word := range row.Content {
				if strings.TrimSpace(word.S) != "" {
					minX = math.Min(minX, word.X)
				}
			}
		}

		var lines []string
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			firstX := math.MaxFloat64
			for _, word := range row.Content {
				if strings.TrimSpace(word.S) == "" {
					continue
				}
				parts = append(parts, word.S)
				firstX = math.Min(firstX, word.X)
			}
			line := strings.TrimRight(strings.Join(parts, " "), " ")
			if line != "" && firstX-minX > 10 && !strings.HasPrefix(line, " ") {
				line = "   " + line
			}
			lines = append(lines, line)
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent groups text runs by Y coordinate and orders each row by X.
// A run starting well right of the page margin is indented so that fault
// status lines keep their indentation.
func extractByContent(r *pdf.Reader, numPages int) []string {
	type textItem struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rowMap := make(map[int][]textItem)
		minX := math.MaxFloat64
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
			minX = math.Min(minX, t.X)
		}

		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		// PDF Y grows upwards.
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool { return items[a].x < items[b].x })

			var b strings.Builder
			if items[0].x-minX > 10 {
				b.WriteString("   ")
			}
			prevX := items[0].x
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					b.WriteString("  ")
				}
				b.WriteString(item.s)
				prevX = item.x
			}
			lines = append(lines, strings.TrimRight(b.String(), " "))
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func extractByReaderPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// extractWithPdftotext shells out to poppler's pdftotext in layout mode.
func extractWithPdftotext(filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}
	out, err := exec.Command("pdftotext", "-layout", filePath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v", err)
	}
	// pdftotext separates pages with form feeds.
	var pages []string
	for _, p := range strings.Split(string(out), "\f") {
		if strings.TrimSpace(p) != "" {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

// diagnosticWords appear in practically every scanner export. Text containing
// none of them is almost certainly font-encoding garbage.
var diagnosticWords = []string{
	"fault", "address", "vin", "mileage", "odometer", "dtc", "code",
	"module", "engine", "status", "obd", "scan", "control unit",
}

// isReadableText requires more than 20 characters, more than 60% plain ASCII
// and at least one diagnostic word.
func isReadableText(pages []string) bool {
	total, readable, length := 0, 0, 0
	for _, page := range pages {
		length += len(strings.TrimSpace(page))
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsPrint(r) || unicode.IsSpace(r)) {
				readable++
			}
		}
	}
	if length <= 20 || float64(readable)/float64(total) <= 0.6 {
		return false
	}

	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range diagnosticWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}
