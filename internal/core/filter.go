// Package core provides filtering and sorting of captured notifications.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// FilterOptions selects queued records by age and package.
type FilterOptions struct {
	Since   time.Duration // newer than now-Since; 0 keeps all
	Package string
	Limit   int // 0 keeps all
}

// Filter returns the records matching opts in their original order.
func Filter(records []model.Record, opts FilterOptions) []model.Record {
	cutoff := time.Now().Add(-opts.Since)
	keep := func(r model.Record) bool {
		if opts.Since > 0 && r.CapturedAt().Before(cutoff) {
			return false
		}
		return opts.Package == "" || r.PackageName == opts.Package
	}

	result := make([]model.Record, 0, len(records))
	for _, r := range records {
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
		if keep(r) {
			result = append(result, r)
		}
	}
	return result
}

var durationUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration accepts time.ParseDuration syntax plus whole days ("7d") and
// weeks ("2w"). "" and "0" mean no limit.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	for suffix, unit := range durationUnits {
		if n, ok := strings.CutSuffix(s, suffix); ok {
			count, err := strconv.Atoi(n)
			if err != nil {
				return 0, fmt.Errorf("invalid duration: %s", s)
			}
			return time.Duration(count) * unit, nil
		}
	}
	return time.ParseDuration(s)
}

// Operators recognised in filter conditions, longest first.
const (
	OpNotEqual  = "!="
	OpGreaterEq = ">="
	OpLessEq    = "<="
	OpRegex     = "~="
	OpEqual     = "="
	OpContains  = "~"
	OpGreater   = ">"
	OpLess      = "<"
)

var operators = []string{OpNotEqual, OpGreaterEq, OpLessEq, OpRegex, OpEqual, OpContains, OpGreater, OpLess}

var fieldNames = map[string]string{
	"package": "package", "packagename": "package", "app": "package",
	"title": "title", "summary": "title",
	"text": "text", "body": "text",
	"timestamp": "timestamp", "time": "timestamp", "ts": "timestamp",
}

var textFields = map[string]func(model.Record) string{
	"package": func(r model.Record) string { return r.PackageName },
	"title":   func(r model.Record) string { return r.Title },
	"text":    func(r model.Record) string { return r.Text },
}

// Condition is one parsed "field op value" term.
type Condition struct {
	Field    string
	Operator string
	Value    string

	match func(model.Record) bool
}

// FilterExpr is a conjunction of conditions.
type FilterExpr struct {
	Conditions []Condition
}

// ParseFilter parses comma-separated conditions such as
// "package=com.whatsapp,text~tomorrow,timestamp>1h".
//
// Fields are package, title, text and timestamp. String fields take
// = != ~ (case-insensitive contains) and ~= (regex). timestamp takes
// > < >= <= against a duration back from now, so "timestamp>1h" keeps
// records captured within the last hour.
func ParseFilter(expr string) (*FilterExpr, error) {
	f := &FilterExpr{}
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		f.Conditions = append(f.Conditions, c)
	}
	return f, nil
}

func parseCondition(s string) (Condition, error) {
	for _, op := range operators {
		name, value, ok := strings.Cut(s, op)
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		field, known := fieldNames[strings.ToLower(strings.TrimSpace(name))]
		if !known {
			return Condition{}, fmt.Errorf("unknown filter field: %s", strings.TrimSpace(name))
		}
		c := Condition{Field: field, Operator: op, Value: strings.TrimSpace(value)}
		match, err := c.matcher()
		if err != nil {
			return Condition{}, err
		}
		c.match = match
		return c, nil
	}
	return Condition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

func (c Condition) matcher() (func(model.Record) bool, error) {
	if c.Field == "timestamp" {
		return c.timeMatcher()
	}

	get := textFields[c.Field]
	switch c.Operator {
	case OpEqual:
		return func(r model.Record) bool { return get(r) == c.Value }, nil
	case OpNotEqual:
		return func(r model.Record) bool { return get(r) != c.Value }, nil
	case OpContains:
		want := strings.ToLower(c.Value)
		return func(r model.Record) bool { return strings.Contains(strings.ToLower(get(r)), want) }, nil
	case OpRegex:
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		return func(r model.Record) bool { return re.MatchString(get(r)) }, nil
	}
	return nil, fmt.Errorf("operator %s not supported for %s", c.Operator, c.Field)
}

func (c Condition) timeMatcher() (func(model.Record) bool, error) {
	age, err := ParseDuration(c.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp value: %w", err)
	}
	cutoff := time.Now().Add(-age)

	switch c.Operator {
	case OpGreater:
		return func(r model.Record) bool { return r.CapturedAt().After(cutoff) }, nil
	case OpLess:
		return func(r model.Record) bool { return r.CapturedAt().Before(cutoff) }, nil
	case OpGreaterEq:
		return func(r model.Record) bool { return !r.CapturedAt().Before(cutoff) }, nil
	case OpLessEq:
		return func(r model.Record) bool { return !r.CapturedAt().After(cutoff) }, nil
	}
	return nil, fmt.Errorf("operator %s not supported for timestamp", c.Operator)
}

// Match reports whether r satisfies every condition.
func (f *FilterExpr) Match(r model.Record) bool {
	for _, c := range f.Conditions {
		if c.match == nil || !c.match(r) {
			return false
		}
	}
	return true
}

// FilterWithExpr keeps the records matching expr.
func FilterWithExpr(records []model.Record, expr *FilterExpr) []model.Record {
	if expr == nil || len(expr.Conditions) == 0 {
		return records
	}

	result := make([]model.Record, 0, len(records))
	for _, r := range records {
		if expr.Match(r) {
			result = append(result, r)
		}
	}
	return result
}
