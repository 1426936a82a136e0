package cloudevents

import "time"

// CloudEvents extension attribute names
const (
	ExtMallID        = "mallid"
	ExtCorrelationID = "correlationid"
	ExtTraceParent   = "traceparent"
	ExtTraceState    = "tracestate"
)

// Headers returns the binary-mode CloudEvents headers for the event. Empty
// extensions are omitted.
func (e *BackofficeEvent) Headers() map[string]string {
	headers := map[string]string{
		"ce-specversion": e.SpecVersion,
		"ce-type":        e.Type,
		"ce-source":      e.Source,
		"ce-id":          e.ID,
		"ce-time":        e.Time.Format(time.RFC3339),
		"content-type":   e.DataContentType,
	}

	if e.Subject != "" {
		headers["ce-subject"] = e.Subject
	}

	for key, value := range map[string]string{
		ExtMallID:        e.MallID,
		ExtCorrelationID: e.CorrelationID,
		ExtTraceParent:   e.TraceParent,
		ExtTraceState:    e.TraceState,
	} {
		if value != "" {
			headers["ce-"+key] = value
		}
	}

	return headers
}
