package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    models.Format
		wantErr bool
	}{
		{"TXT", models.FormatTXT, false},
		{"txt", models.FormatTXT, false},
		{".txt", models.FormatTXT, false},
		{"text", models.FormatTXT, false},
		{" XML ", models.FormatXML, false},
		{"pdf", models.FormatPDF, false},
		{"unsupported", "", true},
		{"", "", true},
		{"docx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedFormat))
				assert.Contains(t, err.Error(), "Unsupported file type")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("/tmp/scan.TXT")
	require.NoError(t, err)
	assert.Equal(t, models.FormatTXT, f)

	_, err = FormatFromPath("/tmp/scan")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadSource_Missing(t *testing.T) {
	_, err := ReadSource(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceRead)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var srcErr *SourceReadError
	require.True(t, errors.As(err, &srcErr))
	assert.Contains(t, srcErr.Source, "missing.txt")
}

func TestNormalize_Text(t *testing.T) {
	content := []byte("\xEF\xBB\xBFVIN: WVWZZZ3CZEE123456  \r\n\r\n17158 - Databus \x00\r\n\t  Confirmed\n")
	lines, err := Normalize(content, models.FormatTXT)
	require.NoError(t, err)

	assert.Equal(t, []models.Line{
		{Num: 1, Text: "VIN: WVWZZZ3CZEE123456"},
		{Num: 2, Text: ""},
		{Num: 3, Text: "17158 - Databus"},
		{Num: 4, Text: "\t  Confirmed"},
	}, lines)
}

func TestNormalize_CP1252(t *testing.T) {
	// "Kühlmittel" with ü encoded as 0xFC.
	lines, err := Normalize([]byte("00522 - K\xFChlmittel"), models.FormatTXT)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "00522 - Kühlmittel", lines[0].Text)
}

func TestNormalize_Empty(t *testing.T) {
	for _, content := range [][]byte{nil, {}, []byte("  \n\t\n")} {
		_, err := Normalize(content, models.FormatTXT)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSourceRead)
		assert.ErrorIs(t, err, ErrEmptySource)
	}
}

func TestNormalize_XML(t *testing.T) {
	content := []byte(`<?xml version="1.0"?>
<report>
  <header>VIN: WVWZZZ3CZEE123456</header>
  <module>Address 01: Engine</module>
  <fault>17158 - Databus</fault>
</report>`)
	lines, err := Normalize(content, models.FormatXML)
	require.NoError(t, err)

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	assert.Equal(t, []string{"VIN: WVWZZZ3CZEE123456", "Address 01: Engine", "17158 - Databus"}, texts)
}

func TestNormalize_XMLNestedStatusIndented(t *testing.T) {
	content := []byte(`<report>
  <module>Address 01: Engine</module>
  <fault>17158 - Databus<status>U0001 00 [009] - Missing Message</status><status>Confirmed</status></fault>
  <line>            MIL ON</line>
</report>`)
	lines, err := Normalize(content, models.FormatXML)
	require.NoError(t, err)

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	assert.Equal(t, []string{
		"Address 01: Engine",
		"17158 - Databus",
		"    U0001 00 [009] - Missing Message",
		"    Confirmed",
		"            MIL ON",
	}, texts)
}

func TestNormalize_PDFRowsKeepIndentation(t *testing.T) {
	data, err := os.ReadFile("../../testdata/vcds_engine.pdf")
	require.NoError(t, err)

	lines, err := Normalize(data, models.FormatPDF)
	require.NoError(t, err)

	byText := make(map[string]string)
	for _, l := range lines {
		byText[strings.TrimSpace(l.Text)] = l.Text
	}
	assert.Equal(t, "Address 01: Engine (CBB)       Labels: 03L-906-022-CBB.clb", byText["Address 01: Engine (CBB)       Labels: 03L-906-022-CBB.clb"])
	assert.Equal(t, "17158 - Databus", byText["17158 - Databus"])
	assert.Equal(t, "   U0001 00 [009] - Missing Message", byText["U0001 00 [009] - Missing Message"])
	assert.Equal(t, "   MIL ON", byText["MIL ON"])
}

func TestNormalize_XMLWithoutText(t *testing.T) {
	_, err := Normalize([]byte(`<report><empty/></report>`), models.FormatXML)
	assert.ErrorIs(t, err, ErrSourceRead)
}

func TestNormalize_PDFDeclaredText(t *testing.T) {
	lines, err := Normalize([]byte("Address 01: Engine\n17158 - Databus"), models.FormatPDF)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestNormalize_BrokenPDF(t *testing.T) {
	_, err := Normalize([]byte("%PDF-1.4\nnot really a pdf"), models.FormatPDF)
	assert.ErrorIs(t, err, ErrSourceRead)
}

func TestNormalize_UnsupportedFormat(t *testing.T) {
	_, err := Normalize([]byte("x"), models.Format("DOCX"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIsReadableText(t *testing.T) {
	assert.True(t, isReadableText([]string{"Address 01: Engine\n2 Faults Found:"}))
	assert.False(t, isReadableText([]string{"short"}))
	assert.False(t, isReadableText([]string{"lorem ipsum dolor sit amet consectetur"}))
}
