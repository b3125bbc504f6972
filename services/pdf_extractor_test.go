package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeOCR struct {
	enabled bool
	pages   map[int]string
	err     error
	calls   int
}

func (f *fakeOCR) Enabled() bool { return f.enabled }

func (f *fakeOCR) ExtractPages(ctx context.Context, data []byte) (map[int]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func TestComposeSectionsSparsePageUsesOCR(t *testing.T) {
	prose := "This page has a perfectly usable native text layer."
	pageTexts := []string{prose, "stamp", prose}

	ocr := &fakeOCR{enabled: true, pages: map[int]string{2: "scanned content of page two"}}
	extractor := NewPDFExtractor(ocr)
	result := &ExtractionResult{Pages: len(pageTexts), Method: "native"}

	if err := extractor.composeSections(context.Background(), []byte("%PDF-fake"), pageTexts, result); err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if ocr.calls != 1 {
		t.Fatalf("one sparse page should trigger exactly one OCR call, got %d", ocr.calls)
	}
	if result.Method != "native+ocr" {
		t.Fatalf("method = %q", result.Method)
	}
	if result.OCRPages != 1 {
		t.Fatalf("ocr pages = %d", result.OCRPages)
	}
	if !strings.Contains(result.Text, "[Page 2 OCR]:\nscanned content of page two") {
		t.Fatalf("missing OCR section: %q", result.Text)
	}

	// Page order is preserved across mixed sources.
	p1 := strings.Index(result.Text, "[Page 1 Text]")
	p2 := strings.Index(result.Text, "[Page 2 OCR]")
	p3 := strings.Index(result.Text, "[Page 3 Text]")
	if p1 < 0 || p2 < 0 || p3 < 0 || !(p1 < p2 && p2 < p3) {
		t.Fatalf("sections out of order: %q", result.Text)
	}
}

func TestComposeSectionsOCRDisabled(t *testing.T) {
	pageTexts := []string{"This page has a perfectly usable native text layer.", "stamp"}

	ocr := &fakeOCR{enabled: false}
	extractor := NewPDFExtractor(ocr)
	result := &ExtractionResult{Pages: len(pageTexts), Method: "native"}

	if err := extractor.composeSections(context.Background(), nil, pageTexts, result); err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if ocr.calls != 0 {
		t.Fatal("disabled OCR client must not be called")
	}
	if result.Method != "native" || result.OCRPages != 0 {
		t.Fatalf("method = %q, ocr pages = %d", result.Method, result.OCRPages)
	}
	if strings.Contains(result.Text, "Page 2") {
		t.Fatalf("sparse page should be dropped without OCR: %q", result.Text)
	}
}

func TestComposeSectionsNoSparsePages(t *testing.T) {
	prose := "This page has a perfectly usable native text layer."
	ocr := &fakeOCR{enabled: true}
	extractor := NewPDFExtractor(ocr)
	result := &ExtractionResult{Pages: 2, Method: "native"}

	if err := extractor.composeSections(context.Background(), nil, []string{prose, prose}, result); err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if ocr.calls != 0 {
		t.Fatal("OCR must not run when every page has a text layer")
	}
	if result.Method != "native" {
		t.Fatalf("method = %q", result.Method)
	}
}

func TestComposeSectionsSparseThreshold(t *testing.T) {
	// 19 characters of native text is sparse; 20 is not.
	under := strings.Repeat("a", 19)
	at := strings.Repeat("a", 20)

	ocr := &fakeOCR{enabled: true, pages: map[int]string{1: "recovered"}}
	extractor := NewPDFExtractor(ocr)
	result := &ExtractionResult{Pages: 2, Method: "native"}

	if err := extractor.composeSections(context.Background(), nil, []string{under, at}, result); err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if !strings.Contains(result.Text, "[Page 1 OCR]:\nrecovered") {
		t.Fatalf("19-char page should fall back to OCR: %q", result.Text)
	}
	if !strings.Contains(result.Text, "[Page 2 Text]:\n"+at) {
		t.Fatalf("20-char page should keep its text layer: %q", result.Text)
	}
}

func TestComposeSectionsOCRFailure(t *testing.T) {
	ocr := &fakeOCR{enabled: true, err: errors.New("read operation failed")}
	extractor := NewPDFExtractor(ocr)
	result := &ExtractionResult{Pages: 1, Method: "native"}

	err := extractor.composeSections(context.Background(), nil, []string{"tiny"}, result)
	if err == nil {
		t.Fatal("OCR failure must surface as an error")
	}
	if !strings.Contains(err.Error(), "ocr fallback") {
		t.Fatalf("error should name the fallback: %v", err)
	}
}

func TestExtractTableBlock(t *testing.T) {
	prose := "This is a paragraph of ordinary prose.\nIt continues on a second line without column alignment."
	if got := extractTableBlock(prose); got != "" {
		t.Fatalf("prose should not yield a table block, got %q", got)
	}

	table := strings.Join([]string{
		"Region        Q1 Revenue    Q2 Revenue",
		"North         1,200         1,450",
		"South         980           1,010",
		"East          1,530         1,610",
		"West          770           845",
	}, "\n")
	got := extractTableBlock(table)
	if got == "" {
		t.Fatal("column-aligned lines should yield a table block")
	}
	if !strings.Contains(got, "North") || !strings.Contains(got, "West") {
		t.Fatalf("table block lost rows: %q", got)
	}

	// Three tabular lines are below the detection floor.
	short := strings.Join([]string{
		"A        B        C",
		"1        2        3",
		"4        5        6",
	}, "\n")
	if got := extractTableBlock(short); got != "" {
		t.Fatalf("three tabular lines should not count as a table, got %q", got)
	}
}
