package dispatch

import (
	"encoding/csv"
	"fmt"
	"io"
)

var failuresHeader = []string{"order_id", "tracking_no", "error_message"}

// WriteFailuresCSV writes failed shipments as CSV for manual follow-up. The
// output starts with a UTF-8 BOM so Excel opens Hangul correctly.
func WriteFailuresCSV(w io.Writer, failed []FailedShipment) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(failuresHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, f := range failed {
		if err := writer.Write([]string{f.OrderID, f.TrackingNo, f.ErrorMessage}); err != nil {
			return fmt.Errorf("failed to write row for order %s: %w", f.OrderID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
