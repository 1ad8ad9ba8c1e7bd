package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoDateTime matches date-times like 2022-08-26T12:46, 2022-08-26T12:46:17.634Z
// and 2022-08-26T12:46:17+02:00. Dates without a time don't match.
var isoDateTime = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2})(?::(\d{2})(?:[.,](\d+))?)?(Z|([+-])(\d{2})(?::?(\d{2}))?)?$`,
)

// ParseISODate parses s if it is a strict ISO-8601 date-time with a valid
// calendar date. Date-times without an offset are read as UTC.
func ParseISODate(s string) (time.Time, bool) {
	m := isoDateTime.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	num := func(s string) int {
		if s == "" {
			return 0
		}
		n, _ := strconv.Atoi(s)
		return n
	}

	year, month, day := num(m[1]), num(m[2]), num(m[3])
	hour, minute, sec := num(m[4]), num(m[5]), num(m[6])
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) {
		return time.Time{}, false
	}
	if hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}

	nsec := 0
	if frac := m[7]; frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		nsec = num(frac + strings.Repeat("0", 9-len(frac)))
	}

	loc := time.UTC
	if m[9] != "" {
		offHour, offMin := num(m[10]), num(m[11])
		if offHour > 23 || offMin > 59 {
			return time.Time{}, false
		}
		offset := offHour*3600 + offMin*60
		if m[9] == "-" {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func stringToDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if t, ok := ParseISODate(s); ok {
		return t
	}
	return v
}

func coerceDates(q WhereQuery) {
	for field, p := range q {
		switch p := p.(type) {
		case WhereQuery:
			coerceDates(p)
		case Condition:
			q[field] = coerceCondition(p)
		}
	}
}

func coerceCondition(c Condition) Condition {
	switch c.Op {
	case OpIsNull:
	case OpNot:
		if c.Operand != nil {
			operand := coerceCondition(*c.Operand)
			c.Operand = &operand
		}
	case OpIn, OpBetween:
		vals := make([]any, len(c.Values))
		for i, v := range c.Values {
			vals[i] = stringToDate(v)
		}
		c.Values = vals
	default:
		c.Value = stringToDate(c.Value)
	}
	return c
}
