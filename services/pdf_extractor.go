package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"bakasura-ingest/internal/azure"

	"github.com/ledongthuc/pdf"
)

// sparsePageThreshold marks a page as scanned/image-only: pages whose
// native text layer yields fewer characters than this are sent to OCR.
const sparsePageThreshold = 20

// OCRClient recognizes text in document bytes, keyed by 1-based page
// number. Satisfied by the Azure Vision client.
type OCRClient interface {
	Enabled() bool
	ExtractPages(ctx context.Context, data []byte) (map[int]string, error)
}

var _ OCRClient = (*azure.VisionClient)(nil)

// PDFExtractor produces the combined text of a PDF: native text layer per
// page, with an OCR pass over the document filling in pages that have no
// usable text layer.
type PDFExtractor struct {
	vision OCRClient
}

func NewPDFExtractor(vision OCRClient) *PDFExtractor {
	return &PDFExtractor{vision: vision}
}

// ExtractionResult contains the result of PDF text extraction
type ExtractionResult struct {
	Text           string
	Pages          int
	Method         string
	OCRPages       int
	ProcessingTime time.Duration
	WordCount      int
	CharacterCount int
	HasTables      bool
}

// Extract reads the file and returns its text as page-tagged sections
// ("[Page N Text]", "[Page N OCR]") joined with blank lines, ready for
// normalization and chunking.
func (e *PDFExtractor) Extract(ctx context.Context, filePath string) (*ExtractionResult, error) {
	start := time.Now()

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > 200<<20 { // 200MB safety cap
		return nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	pageTexts, err := e.extractNative(content)
	if err != nil {
		return nil, err
	}

	result := &ExtractionResult{
		Pages:  len(pageTexts),
		Method: "native",
	}

	if err := e.composeSections(ctx, content, pageTexts, result); err != nil {
		return nil, err
	}

	result.CharacterCount = len(result.Text)
	result.WordCount = len(strings.Fields(result.Text))
	result.ProcessingTime = time.Since(start)

	if result.CharacterCount == 0 {
		return nil, fmt.Errorf("no text could be extracted from %d pages", result.Pages)
	}

	return result, nil
}

// composeSections assembles the page-tagged output and fills Method,
// OCRPages and HasTables. Pages with no usable text layer are OCR
// candidates; one Read call covers the whole document and only sparse
// pages take its output.
func (e *PDFExtractor) composeSections(ctx context.Context, content []byte, pageTexts []string, result *ExtractionResult) error {
	sparse := 0
	for _, text := range pageTexts {
		if len(strings.TrimSpace(text)) < sparsePageThreshold {
			sparse++
		}
	}

	ocrTexts := map[int]string{}
	if sparse > 0 && e.vision != nil && e.vision.Enabled() {
		var err error
		ocrTexts, err = e.vision.ExtractPages(ctx, content)
		if err != nil {
			return fmt.Errorf("ocr fallback failed: %w", err)
		}
		result.Method = "native+ocr"
	}

	var sections []string
	for i, text := range pageTexts {
		pageNum := i + 1

		if len(strings.TrimSpace(text)) >= sparsePageThreshold {
			sections = append(sections, fmt.Sprintf("[Page %d Text]:\n%s", pageNum, text))
			if table := extractTableBlock(text); table != "" {
				sections = append(sections, fmt.Sprintf("[Page %d Table]:\n%s", pageNum, table))
				result.HasTables = true
			}
			continue
		}

		if ocr := strings.TrimSpace(ocrTexts[pageNum]); ocr != "" {
			sections = append(sections, fmt.Sprintf("[Page %d OCR]:\n%s", pageNum, ocr))
			result.OCRPages++
		}
	}

	result.Text = strings.Join(sections, "\n\n")
	return nil
}

// extractNative pulls the text layer of each page with ledongthuc/pdf.
// Per-page failures are tolerated; the page is left empty for the OCR pass.
func (e *PDFExtractor) extractNative(content []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	pages := reader.NumPage()
	pageTexts := make([]string, pages)

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		pageTexts[i-1] = text
	}

	return pageTexts, nil
}

// extractTableBlock collects the column-aligned lines of a page so tables
// remain searchable as a unit after chunking. Returns "" when the page has
// too few tabular lines to count as a table.
func extractTableBlock(text string) string {
	var tabular []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 10 && (strings.Count(line, "  ") > 2 || strings.Count(line, "\t") > 1) {
			tabular = append(tabular, line)
		}
	}

	if len(tabular) <= 3 {
		return ""
	}
	return strings.Join(tabular, "\n")
}
