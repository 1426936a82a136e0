// Package matching assigns carrier spreadsheet rows to open orders.
//
// Each row is tried against four tiers in priority order: name, phone,
// address and relaxed name. A tier only consumes an order when exactly one
// candidate survives; ties are narrowed by a secondary key or left
// unresolved, never broken by position. Orders are consumed at most once
// per run.
package matching

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/normalize"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
)

// MinAddressRunes is the shortest normalized shipment address that may be
// matched by address alone.
const MinAddressRunes = 5

// Matcher runs the tiered assignment. It holds no per-run state and is safe
// for concurrent use.
type Matcher struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewMatcher creates a Matcher. Both arguments may be nil.
func NewMatcher(logger *logging.Logger, m *metrics.Metrics) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		logger:  logger.WithComponent("matcher"),
		metrics: m,
	}
}

// keys holds the normalized comparison fields of an order or a shipment row.
type keys struct {
	rawName  string
	name     string
	enhanced string
	company  string
	phone    string
	address  string
	base     string
	masked   bool
}

func newKeys(name, phone, address string) keys {
	return keys{
		rawName:  name,
		name:     normalize.Name(name),
		enhanced: normalize.NameEnhanced(name),
		company:  normalize.CompanyName(name),
		phone:    normalize.Phone(phone),
		address:  normalize.Address(address),
		base:     normalize.BaseAddress(address),
		masked:   normalize.HasMask(name),
	}
}

// nameVariants returns the distinct non-empty name keys used by the
// split-order index.
func (k keys) nameVariants() []string {
	variants := make([]string, 0, 3)
	for _, v := range []string{k.name, k.enhanced, k.company} {
		if v == "" || contains(variants, v) {
			continue
		}
		variants = append(variants, v)
	}
	return variants
}

type candidate struct {
	index int
	order domain.OrderRecord
	keys  keys
}

// run is the mutable state of one Match call.
type run struct {
	orders   []candidate
	consumed map[string]bool
	byName   map[string][]int
}

func newRun(orders []domain.OrderRecord) *run {
	r := &run{
		orders:   make([]candidate, len(orders)),
		consumed: make(map[string]bool, len(orders)),
		byName:   make(map[string][]int),
	}
	for i, o := range orders {
		k := newKeys(o.ReceiverName, o.ReceiverPhone, o.ReceiverAddress)
		r.orders[i] = candidate{index: i, order: o, keys: k}
		for _, v := range k.nameVariants() {
			r.byName[v] = append(r.byName[v], i)
		}
	}
	return r
}

func (r *run) filter(keep func(c *candidate) bool) []*candidate {
	var out []*candidate
	for i := range r.orders {
		c := &r.orders[i]
		if r.consumed[c.order.OrderID] {
			continue
		}
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func narrow(cands []*candidate, keep func(c *candidate) bool) []*candidate {
	var out []*candidate
	for _, c := range cands {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// outcome is what the tiers decided for one row.
type outcome struct {
	chosen    *candidate
	method    domain.MatchMethod
	matchType domain.MatchType
	notes     []string
}

// Match assigns rows to orders. Rows are processed in input order, which
// fixes which row consumes a contested order; the result is identical for
// identical inputs.
func (m *Matcher) Match(orders []domain.OrderRecord, rows []domain.ShipmentRow) *domain.MatchResult {
	r := newRun(orders)
	result := &domain.MatchResult{
		Assignments: make([]domain.MatchAssignment, 0, len(rows)),
		Failures:    make([]domain.MatchFailure, 0),
		Stats: domain.MatchStats{
			Total:    len(rows),
			ByMethod: make(map[domain.MatchMethod]int),
		},
	}

	for _, row := range rows {
		s := newKeys(row.ReceiverName, row.ReceiverPhone, row.ReceiverAddress)
		out := r.matchRow(s)

		if out.chosen != nil {
			r.consumed[out.chosen.order.OrderID] = true
			result.Assignments = append(result.Assignments, domain.MatchAssignment{
				OrderID:         out.chosen.order.OrderID,
				ReceiverName:    out.chosen.order.ReceiverName,
				ReceiverAddress: out.chosen.order.ReceiverAddress,
				TrackingNo:      row.TrackingNo,
				MatchType:       out.matchType,
				Method:          out.method,
				SourceRow:       row.SourceRow,
			})
			result.Stats.Matched++
			result.Stats.ByMethod[out.method]++
			m.metrics.RecordShipmentMatch(string(out.method), string(out.matchType))

			m.logger.Debug("Shipment row matched",
				"sourceRow", row.SourceRow,
				"trackingNo", row.TrackingNo,
				"orderId", out.chosen.order.OrderID,
				"method", out.method,
				"matchType", out.matchType,
			)
			continue
		}

		failure := r.failure(row, s, out.notes)
		result.Failures = append(result.Failures, failure)
		result.Stats.Failed++
		m.metrics.RecordShipmentMatchFailure(string(failure.Kind))

		m.logger.Debug("Shipment row unresolved",
			"sourceRow", row.SourceRow,
			"trackingNo", row.TrackingNo,
			"kind", failure.Kind,
			"reason", failure.Reason,
			"possibleSplitOrders", len(failure.PossibleSplitOrderIDs),
		)
	}

	m.logger.Info("Shipment matching finished",
		"orders", len(orders),
		"rows", result.Stats.Total,
		"matched", result.Stats.Matched,
		"failed", result.Stats.Failed,
		"byName", result.Stats.ByMethod[domain.MethodName],
		"byNameAddress", result.Stats.ByMethod[domain.MethodNameAddress],
		"byPhone", result.Stats.ByMethod[domain.MethodPhone],
		"byAddress", result.Stats.ByMethod[domain.MethodAddress],
		"byEnhancedName", result.Stats.ByMethod[domain.MethodEnhancedName],
		"byEnhancedNameAddress", result.Stats.ByMethod[domain.MethodEnhancedNameAddress],
	)

	return result
}

func (r *run) matchRow(s keys) outcome {
	var out outcome

	// Tier 1: normalized name, or masked-name similarity when either side is masked.
	byName := r.filter(func(c *candidate) bool {
		if s.name != "" && c.keys.name == s.name {
			return true
		}
		return (s.masked || c.keys.masked) && normalize.NamesSimilarWithMasking(s.rawName, c.keys.rawName)
	})
	switch {
	case len(byName) == 1:
		return outcome{chosen: byName[0], method: domain.MethodName, matchType: domain.MatchTypeExact}
	case len(byName) > 1:
		narrowed := narrow(byName, func(c *candidate) bool {
			return looseAddressMatch(c.keys.address, s.address)
		})
		if len(narrowed) == 1 {
			return outcome{chosen: narrowed[0], method: domain.MethodNameAddress, matchType: domain.MatchTypeExact}
		}
		out.notes = append(out.notes, fmt.Sprintf("name matched %d orders and address narrowed to %d", len(byName), len(narrowed)))
	}

	// Tier 2: phone.
	if s.phone != "" {
		byPhone := r.filter(func(c *candidate) bool {
			return c.keys.phone == s.phone
		})
		if len(byPhone) == 1 {
			return outcome{chosen: byPhone[0], method: domain.MethodPhone, matchType: domain.MatchTypePartial}
		}
		if len(byPhone) > 1 {
			out.notes = append(out.notes, fmt.Sprintf("phone matched %d orders", len(byPhone)))
		}
	}

	// Tier 3: address, only when the shipment address is specific enough.
	if utf8.RuneCountInString(s.address) >= MinAddressRunes {
		byAddress := r.filter(func(c *candidate) bool {
			return c.keys.address == s.address ||
				baseAddressRelated(c.keys.base, s.base) ||
				looseAddressMatch(c.keys.address, s.address)
		})
		if len(byAddress) == 1 {
			return outcome{chosen: byAddress[0], method: domain.MethodAddress, matchType: domain.MatchTypePartial}
		}
		if len(byAddress) > 1 {
			out.notes = append(out.notes, fmt.Sprintf("address matched %d orders", len(byAddress)))
		}
	}

	// Tier 4: relaxed name (job titles, company markers, masking).
	relaxed := r.filter(func(c *candidate) bool {
		if s.enhanced != "" && c.keys.enhanced == s.enhanced {
			return true
		}
		if s.company != "" && c.keys.company == s.company {
			return true
		}
		return normalize.NamesSimilarWithMasking(s.rawName, c.keys.rawName)
	})
	switch {
	case len(relaxed) == 1:
		return outcome{chosen: relaxed[0], method: domain.MethodEnhancedName, matchType: domain.MatchTypePartial}
	case len(relaxed) > 1:
		narrowed := narrow(relaxed, func(c *candidate) bool {
			return baseAddressRelated(c.keys.base, s.base)
		})
		if len(narrowed) == 1 {
			return outcome{chosen: narrowed[0], method: domain.MethodEnhancedNameAddress, matchType: domain.MatchTypePartial}
		}
		out.notes = append(out.notes, fmt.Sprintf("relaxed name matched %d orders and base address narrowed to %d", len(relaxed), len(narrowed)))
	}

	return out
}

func (r *run) failure(row domain.ShipmentRow, s keys, notes []string) domain.MatchFailure {
	kind := domain.FailureNoMatch
	reason := "no unconsumed order matched by name, phone or address"
	if len(notes) > 0 {
		kind = domain.FailureAmbiguous
		reason = "ambiguous: " + strings.Join(notes, "; ")
	}

	return domain.MatchFailure{
		SourceRow:             row.SourceRow,
		TrackingNo:            row.TrackingNo,
		ShipmentName:          row.ReceiverName,
		ShipmentPhone:         row.ReceiverPhone,
		ShipmentAddress:       row.ReceiverAddress,
		Kind:                  kind,
		Reason:                reason,
		PossibleSplitOrderIDs: r.splitCandidates(s),
	}
}

// splitCandidates lists unconsumed orders sharing any name variant with the
// row, in input order. It is a hint for manual review only.
func (r *run) splitCandidates(s keys) []string {
	seen := make(map[int]bool)
	var indexes []int
	for _, v := range s.nameVariants() {
		for _, i := range r.byName[v] {
			if seen[i] || r.consumed[r.orders[i].order.OrderID] {
				continue
			}
			seen[i] = true
			indexes = append(indexes, i)
		}
	}
	sort.Ints(indexes)

	ids := make([]string, 0, len(indexes))
	for _, i := range indexes {
		ids = append(ids, r.orders[i].order.OrderID)
	}
	return ids
}

// looseAddressMatch is equality or containment either way of two
// normalized addresses.
func looseAddressMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// baseAddressRelated compares the coarse street-level keys.
func baseAddressRelated(a, b string) bool {
	return looseAddressMatch(a, b)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
