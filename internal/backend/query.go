package backend

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Op is a filter operator in the PostgREST style (col=op.value).
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpLike  Op = "like"
	OpILike Op = "ilike"
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike:
		return true
	}
	return false
}

// Filter restricts a select to rows where Column Op Value holds.
type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Query describes a select: filters, one ordering column and a row limit.
// The zero value selects every row in storage order.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(column string, op Op, value string) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Column: column, Op: op, Value: value})
	return q
}

func (q Query) Eq(column, value string) Query { return q.Where(column, OpEq, value) }

// Order returns a copy of q sorted by column.
func (q Query) Order(column string, ascending bool) Query {
	q.OrderBy = column
	q.Descending = !ascending
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// reserved query parameters that are not column filters
const (
	paramOrder = "order"
	paramLimit = "limit"
)

var columnRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Encode renders q as URL query parameters.
func (q Query) Encode() url.Values {
	v := url.Values{}
	for _, f := range q.Filters {
		v.Add(f.Column, string(f.Op)+"."+f.Value)
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		v.Set(paramOrder, q.OrderBy+"."+dir)
	}
	if q.Limit > 0 {
		v.Set(paramLimit, strconv.Itoa(q.Limit))
	}
	return v
}

// ParseQuery is the inverse of Encode. Filters come back sorted by column so
// the result does not depend on map iteration order.
func ParseQuery(v url.Values) (Query, error) {
	var q Query
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := v[key]
		switch key {
		case paramOrder:
			col, dir, _ := strings.Cut(values[0], ".")
			if !columnRe.MatchString(col) {
				return Query{}, fmt.Errorf("invalid order column %q", col)
			}
			switch dir {
			case "", "asc":
			case "desc":
				q.Descending = true
			default:
				return Query{}, fmt.Errorf("invalid order direction %q", dir)
			}
			q.OrderBy = col
		case paramLimit:
			n, err := strconv.Atoi(values[0])
			if err != nil || n < 0 {
				return Query{}, fmt.Errorf("invalid limit %q", values[0])
			}
			q.Limit = n
		default:
			if !columnRe.MatchString(key) {
				return Query{}, fmt.Errorf("invalid filter column %q", key)
			}
			for _, raw := range values {
				op, value, ok := strings.Cut(raw, ".")
				if !ok || !Op(op).valid() {
					return Query{}, fmt.Errorf("invalid filter %s=%s", key, raw)
				}
				q.Filters = append(q.Filters, Filter{Column: key, Op: Op(op), Value: value})
			}
		}
	}
	return q, nil
}
