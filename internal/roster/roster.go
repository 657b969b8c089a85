// Package roster holds the admin view over the full registration set:
// field filters, single-column sorting, fixed-size pagination and the
// aggregate counters shown above the table. The computation is pure; the
// Roster type adds the in-memory snapshot and a single-entry memo so the
// view is only recomputed when the records or the query change.
package roster

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"chessreg/internal/model"
)

const PageSize = 12

const (
	Asc  = "asc"
	Desc = "desc"
)

// Filterable/sortable column names, matching the table's wire names.
const (
	FieldFullName         = "full_name"
	FieldNameWithInitials = "name_with_initials"
	FieldFideID           = "fide_id"
	FieldDateOfBirth      = "date_of_birth"
	FieldGender           = "gender"
	FieldContactNumber    = "contact_number"
	FieldAgeCategory      = "age_category"
	FieldPaymentStatus    = "payment_status"
	FieldReferenceNumber  = "reference_number"
	FieldCreatedAt        = "created_at"
)

type Query struct {
	Filters       map[string]string
	SortField     string
	SortDirection string
	Page          int
}

type Page struct {
	Rows          []model.Registration
	Page          int
	TotalPages    int
	FilteredCount int
}

type Stats struct {
	TotalRegistered        int
	TotalPaid              int
	PaidToThuva            int
	PaidToThushanth        int
	PaidPercentOfTotal     int
	ThuvaPercentOfPaid     int
	ThushanthPercentOfPaid int
}

// fieldValue returns the string form of a column plus whether the value is
// present. Only fide_id can be absent.
func fieldValue(r model.Registration, field string) (string, bool) {
	switch field {
	case FieldFullName:
		return r.FullName, true
	case FieldNameWithInitials:
		return r.NameWithInitials, true
	case FieldFideID:
		return r.FideID, r.FideID != ""
	case FieldDateOfBirth:
		return r.DateOfBirth.Format("2006-01-02"), true
	case FieldGender:
		return r.Gender, true
	case FieldContactNumber:
		return r.ContactNumber, true
	case FieldAgeCategory:
		return r.AgeCategory, true
	case FieldPaymentStatus:
		return r.PaymentStatus, true
	case FieldReferenceNumber:
		return r.ReferenceNumber, true
	case FieldCreatedAt:
		return r.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"), true
	}
	return "", false
}

// Filter keeps records whose every non-empty pattern is contained,
// case-insensitively, in the string form of the named field. Patterns
// compose with AND; an empty filter map passes everything.
func Filter(records []model.Registration, filters map[string]string) []model.Registration {
	out := make([]model.Registration, 0, len(records))
	for _, r := range records {
		keep := true
		for field, pattern := range filters {
			if pattern == "" {
				continue
			}
			v, _ := fieldValue(r, field)
			if !strings.Contains(strings.ToLower(v), strings.ToLower(pattern)) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// Sort orders a copy of records by one column. Absent values sort first
// ascending and last descending; everything else compares as case-sensitive
// strings, numeric-looking columns included. Equal keys keep their order.
func Sort(records []model.Registration, field, direction string) []model.Registration {
	out := make([]model.Registration, len(records))
	copy(out, records)
	if field == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, aOK := fieldValue(out[i], field)
		b, bOK := fieldValue(out[j], field)
		if !aOK || !bOK {
			if aOK == bOK {
				return false
			}
			// Absent first under asc, last under desc.
			if direction == Desc {
				return !bOK
			}
			return !aOK
		}
		if direction == Desc {
			return a > b
		}
		return a < b
	})
	return out
}

// Paginate slices one fixed-size page out of records. The requested page is
// clamped to [1, totalPages] rather than rejected, and totalPages is never
// below 1.
func Paginate(records []model.Registration, page int) Page {
	totalPages := (len(records) + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	first := (page - 1) * PageSize
	last := first + PageSize
	if first > len(records) {
		first = len(records)
	}
	if last > len(records) {
		last = len(records)
	}
	return Page{
		Rows:          records[first:last],
		Page:          page,
		TotalPages:    totalPages,
		FilteredCount: len(records),
	}
}

// View applies filter, sort and pagination in that order.
func View(records []model.Registration, q Query) Page {
	return Paginate(Sort(Filter(records, q.Filters), q.SortField, q.SortDirection), q.Page)
}

// Aggregate counts over the unfiltered set. Percentages round to the
// nearest integer and report 0 when their denominator is 0.
func Aggregate(records []model.Registration) Stats {
	s := Stats{TotalRegistered: len(records)}
	for _, r := range records {
		switch r.PaymentStatus {
		case model.StatusPaidToThuva:
			s.PaidToThuva++
		case model.StatusPaidToThushanth:
			s.PaidToThushanth++
		}
	}
	s.TotalPaid = s.PaidToThuva + s.PaidToThushanth
	s.PaidPercentOfTotal = percent(s.TotalPaid, s.TotalRegistered)
	s.ThuvaPercentOfPaid = percent(s.PaidToThuva, s.TotalPaid)
	s.ThushanthPercentOfPaid = percent(s.PaidToThushanth, s.TotalPaid)
	return s
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// Roster is the admin's in-memory snapshot of the persisted set. It is only
// ever replaced wholesale after a refetch or patched at a single id after
// the store confirmed a status update.
type Roster struct {
	mu      sync.RWMutex
	records []model.Registration
	version uint64
	loaded  bool

	memoMu   sync.Mutex
	memoKey  string
	memoPage Page
}

func New() *Roster {
	return &Roster{}
}

// Loaded reports whether a snapshot has been fetched at least once.
func (r *Roster) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Replace swaps in a fresh snapshot and invalidates the memoized view.
func (r *Roster) Replace(records []model.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = records
	r.version++
	r.loaded = true
}

// Patch updates the payment status of exactly one record. Returns false if
// the id is not in the snapshot.
func (r *Roster) Patch(id, paymentStatus string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].PaymentStatus = paymentStatus
			r.version++
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current records, newest first as fetched.
func (r *Roster) Snapshot() []model.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Registration, len(r.records))
	copy(out, r.records)
	return out
}

// Stats aggregates over the full snapshot.
func (r *Roster) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Aggregate(r.records)
}

// View computes the visible page for q, reusing the previous result when
// neither the snapshot nor the query has changed since the last call. The
// read lock is held across the computation so a concurrent Patch cannot
// mutate the records mid-view; the rows handed back are value copies.
func (r *Roster) View(q Query) Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := r.queryKey(q)

	r.memoMu.Lock()
	defer r.memoMu.Unlock()
	if key == r.memoKey {
		return r.memoPage
	}
	page := View(r.records, q)
	r.memoKey = key
	r.memoPage = page
	return page
}

// queryKey canonicalizes (version, query) into the memo key. Filter keys
// are emitted in sorted order so equivalent maps hash identically.
func (r *Roster) queryKey(q Query) string {
	keys := make([]string, 0, len(q.Filters))
	for k, v := range q.Filters {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "v%d|%s|%s|p%d", r.version, q.SortField, q.SortDirection, q.Page)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, q.Filters[k])
	}
	return b.String()
}
