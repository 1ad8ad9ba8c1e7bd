package qsql

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/birdie-ai/qsql/query"
)

// Query is the envelope of a paginated query.
// Relations and WithDeleted are passed through to the data layer as is.
type Query struct {
	Where       query.WhereQuery `json:"where,omitempty"`
	Order       query.OrderQuery `json:"order,omitempty"`
	Page        int              `json:"page,omitempty"`
	PerPage     int              `json:"perPage,omitempty"`
	Relations   map[string]bool  `json:"relations,omitempty"`
	WithDeleted bool             `json:"withDeleted,omitempty"`
}

// ErrInvalidParam indicates a query string parameter with an invalid value.
var ErrInvalidParam = errors.New("invalid query string parameter")

// ToQueryString encodes the where, order, page and perPage of q, in that
// order, as a URL query string. Where and order are JSON encoded, zero values
// are omitted.
func ToQueryString(q Query) (string, error) {
	var params []string
	add := func(key, val string) {
		params = append(params, key+"="+url.QueryEscape(val))
	}
	if len(q.Where) > 0 {
		data, err := json.Marshal(q.Where)
		if err != nil {
			return "", fmt.Errorf("encoding where: %w", err)
		}
		add("where", string(data))
	}
	if len(q.Order) > 0 {
		data, err := json.Marshal(q.Order)
		if err != nil {
			return "", fmt.Errorf("encoding order: %w", err)
		}
		add("order", string(data))
	}
	if q.Page != 0 {
		add("page", strconv.Itoa(q.Page))
	}
	if q.PerPage != 0 {
		add("perPage", strconv.Itoa(q.PerPage))
	}
	return strings.Join(params, "&"), nil
}

// FromQueryString decodes a URL query string into a [Query].
//
//   - filter is a filter expression, see [ToWhereQuery]
//   - where is a JSON where query. It can't be combined with filter
//   - order is a JSON order query, or an order expression (see [ToOrderQuery])
//     when it doesn't start with "{"
//   - page and perPage are JSON integers from 0 to [math.MaxInt32]
//
// Empty parameters and unknown keys are ignored. A page or perPage outside
// 0..[math.MaxInt32], or with a fraction, fails with [ErrInvalidParam].
func FromQueryString(s string) (Query, error) {
	params, err := url.ParseQuery(s)
	if err != nil {
		return Query{}, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}

	var q Query
	filterParam, whereParam := params.Get("filter"), params.Get("where")
	if filterParam != "" && whereParam != "" {
		return Query{}, fmt.Errorf(`%w: "filter" and "where" can't be used together`, ErrInvalidParam)
	}
	if filterParam != "" {
		q.Where, err = ToWhereQuery(filterParam)
		if err != nil {
			return Query{}, fmt.Errorf("decoding filter: %w", err)
		}
	}
	if whereParam != "" {
		if err := json.Unmarshal([]byte(whereParam), &q.Where); err != nil {
			return Query{}, fmt.Errorf("decoding where: %w", err)
		}
	}

	if orderParam := params.Get("order"); orderParam != "" {
		if strings.HasPrefix(strings.TrimSpace(orderParam), "{") {
			err = json.Unmarshal([]byte(orderParam), &q.Order)
		} else {
			q.Order, err = ToOrderQuery(orderParam)
		}
		if err != nil {
			return Query{}, fmt.Errorf("decoding order: %w", err)
		}
	}

	if q.Page, err = intParam(params, "page"); err != nil {
		return Query{}, err
	}
	if q.PerPage, err = intParam(params, "perPage"); err != nil {
		return Query{}, err
	}
	return q, nil
}

func intParam(params url.Values, key string) (int, error) {
	val := params.Get(key)
	if val == "" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal([]byte(val), &f); err != nil {
		return 0, fmt.Errorf("%w: %s: expected a number, got %q", ErrInvalidParam, key, val)
	}
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s: expected a non-negative integer, got %s", ErrInvalidParam, key, val)
	}
	return int(f), nil
}
