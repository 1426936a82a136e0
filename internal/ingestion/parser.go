// Package ingestion reads carrier spreadsheets (xlsx or csv) into shipment
// rows ready for matching.
package ingestion

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/normalize"
	"github.com/shopops/backoffice/pkg/logging"
)

var (
	utf8BOM           = []byte{0xEF, 0xBB, 0xBF}
	trailingZeroFloat = regexp.MustCompile(`\.0+$`)
)

// Result is the outcome of parsing one file
type Result struct {
	FileName     string               `json:"file_name"`
	Rows         []domain.ShipmentRow `json:"rows"`
	Columns      ColumnMap            `json:"columns"`
	TotalRows    int                  `json:"total_rows"`
	SkippedEmpty int                  `json:"skipped_empty"`
	Duplicates   int                  `json:"duplicates"`
}

// Parser converts uploaded spreadsheets into ShipmentRows
type Parser struct {
	logger *logging.Logger
}

// NewParser creates a Parser
func NewParser(logger *logging.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Parser{logger: logger.WithComponent("ingestion")}
}

// Parse reads the file and returns de-duplicated shipment rows. The format
// is chosen from the file name extension.
func (p *Parser) Parse(ctx context.Context, fileName string, r io.Reader) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(r)
	case ".csv":
		records, err = readCSV(r)
	case ".xls":
		return nil, &domain.ValidationError{Field: "file", Message: "legacy .xls workbooks are not supported, save the file as .xlsx or .csv"}
	default:
		return nil, &domain.ValidationError{Field: "file", Message: fmt.Sprintf("unsupported file type %q", ext)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := buildRows(records)
	if err != nil {
		return nil, err
	}
	result.FileName = fileName

	p.logger.WithContext(ctx).Info("Spreadsheet parsed",
		"fileName", fileName,
		"rows", len(result.Rows),
		"totalRows", result.TotalRows,
		"skippedEmpty", result.SkippedEmpty,
		"duplicates", result.Duplicates,
	)

	return result, nil
}

func buildRows(records [][]string) (*Result, error) {
	headerAt := -1
	for i, rec := range records {
		if !blankRecord(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, &domain.ValidationError{Field: "file", Message: "spreadsheet has no header row"}
	}

	columns, err := DetectColumns(records[headerAt])
	if err != nil {
		return nil, err
	}

	result := &Result{
		Rows:    make([]domain.ShipmentRow, 0, len(records)-headerAt-1),
		Columns: columns,
	}
	seen := make(map[string]bool)

	for i := headerAt + 1; i < len(records); i++ {
		rec := records[i]
		if blankRecord(rec) {
			continue
		}
		result.TotalRows++

		trackingNo := cleanTrackingNo(cell(rec, columns.TrackingNo))
		if trackingNo == "" {
			result.SkippedEmpty++
			continue
		}

		row := domain.ShipmentRow{
			TrackingNo:      trackingNo,
			ReceiverName:    cell(rec, columns.ReceiverName),
			ReceiverPhone:   cell(rec, columns.ReceiverPhone),
			ReceiverZipcode: cell(rec, columns.ReceiverZipcode),
			ReceiverAddress: cell(rec, columns.ReceiverAddress),
			SourceRow:       i + 1,
		}

		key := dedupKey(row)
		if seen[key] {
			result.Duplicates++
			continue
		}
		seen[key] = true
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// dedupKey identifies a recipient; the first row for a recipient wins.
func dedupKey(row domain.ShipmentRow) string {
	return normalize.Compact(row.ReceiverName) + "|" +
		strings.TrimSpace(row.ReceiverZipcode) + "|" +
		normalize.Address(row.ReceiverAddress)
}

// cleanTrackingNo undoes spreadsheet number formatting: scientific notation
// such as 6.01234567891E+11 and a trailing ".0".
func cleanTrackingNo(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "eE") {
		if d, err := decimal.NewFromString(s); err == nil {
			s = d.StringFixed(0)
		}
	}
	return trailingZeroFloat.ReplaceAllString(s, "")
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// readCSV accepts UTF-8 (with or without BOM) and EUC-KR, which Korean
// Excel installs still produce on "Save as CSV".
func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("file is neither UTF-8 nor EUC-KR: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}
