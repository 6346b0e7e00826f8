// Package traffic parses and composes gateway traffic filter expressions.
//
// The grammar is fixed: zero or more clauses of the form
// any(<selector>[*] in {id id ...}) joined by " or ", where the selector is
// one of dns.content_category, app.type.ids or app.ids. This is not a
// general expression language; the composer only needs the three id sets.
package traffic

import (
	"sort"
	"strconv"
	"strings"
)

const (
	selCategory = "dns.content_category"
	selAppType  = "app.type.ids"
	selAppID    = "app.ids"
)

// IDSet is a set of small non-negative integers from one clause kind.
type IDSet map[int]struct{}

func (s IDSet) Add(id int) { s[id] = struct{}{} }

// Sorted returns the members in ascending order. Emitted clauses always use
// this canonical ordering so composition is a pure function of the set.
func (s IDSet) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Expression is the parsed form of a traffic filter: one id set per clause
// kind. A missing clause is just an empty set.
type Expression struct {
	Categories IDSet
	AppTypes   IDSet
	AppIDs     IDSet
}

func NewExpression() Expression {
	return Expression{Categories: IDSet{}, AppTypes: IDSet{}, AppIDs: IDSet{}}
}

func (e Expression) IsEmpty() bool {
	return len(e.Categories) == 0 && len(e.AppTypes) == 0 && len(e.AppIDs) == 0
}

// Merge adds every id of o into e.
func (e Expression) Merge(o Expression) {
	for id := range o.Categories {
		e.Categories.Add(id)
	}
	for id := range o.AppTypes {
		e.AppTypes.Add(id)
	}
	for id := range o.AppIDs {
		e.AppIDs.Add(id)
	}
}

// Parse extracts the three clause kinds from a filter string. Clauses with
// unknown selectors and tokens that are not integers contribute nothing.
func Parse(s string) Expression {
	e := NewExpression()
	rest := s
	for {
		i := strings.Index(rest, "any(")
		if i < 0 {
			break
		}
		rest = rest[i+len("any("):]
		j := strings.Index(rest, "[*] in {")
		if j < 0 {
			break
		}
		sel := rest[:j]
		rest = rest[j+len("[*] in {"):]
		k := strings.IndexByte(rest, '}')
		if k < 0 {
			break
		}
		body := rest[:k]
		rest = rest[k+1:]

		var set IDSet
		switch sel {
		case selCategory:
			set = e.Categories
		case selAppType:
			set = e.AppTypes
		case selAppID:
			set = e.AppIDs
		default:
			continue
		}
		for _, tok := range strings.Fields(body) {
			if id, err := strconv.Atoi(tok); err == nil {
				set.Add(id)
			}
		}
	}
	return e
}

// String serializes the expression in canonical form: category, app-type and
// app-id clauses in that order, ids ascending, joined by " or ". Empty
// expressions serialize to "".
func (e Expression) String() string {
	var clauses []string
	if len(e.Categories) > 0 {
		clauses = append(clauses, clause(selCategory, e.Categories))
	}
	if len(e.AppTypes) > 0 {
		clauses = append(clauses, clause(selAppType, e.AppTypes))
	}
	if len(e.AppIDs) > 0 {
		clauses = append(clauses, clause(selAppID, e.AppIDs))
	}
	return strings.Join(clauses, " or ")
}

func clause(sel string, set IDSet) string {
	var b strings.Builder
	b.WriteString("any(")
	b.WriteString(sel)
	b.WriteString("[*] in {")
	for i, id := range set.Sorted() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(id))
	}
	b.WriteString("})")
	return b.String()
}

// Compose derives the aggregate allow-all filter from the given block rule
// filters: the union of every id set, negated. Returns "" when nothing is
// blocked, which the gateway treats as "match everything".
func Compose(filters []string) string {
	agg := NewExpression()
	for _, f := range filters {
		agg.Merge(Parse(f))
	}
	if agg.IsEmpty() {
		return ""
	}
	return "not(" + agg.String() + ")"
}
