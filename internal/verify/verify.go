package verify

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"flowquest/internal/receipt"
)

// Result is the verifier verdict. Passed is false when any rule raised an
// issue; fixes are one-line remediation hints aligned with the issues.
type Result struct {
	Passed bool            `json:"passed"`
	Issues []string        `json:"issues"`
	Fixes  []string        `json:"fixes"`
	Checks []receipt.Check `json:"checks"`
}

var requiredFields = []string{"budget", "scope", "timeline"}

const (
	budgetMin = 1000
	budgetMax = 1000000
)

var timelinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-Q[1-4]$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^[A-Za-z]+ \d{4}$`),
}

var urlFields = []string{"company_url", "website", "reference_url"}

var starKeywords = []string{"situation", "task", "action", "result"}

// Run evaluates every rule against the quest's current bindings.
func Run(bindings map[string]any) Result {
	r := &Result{}
	r.checkRequired(bindings)
	r.checkBudget(bindings)
	r.checkTimeline(bindings)
	r.checkURLs(bindings)
	r.checkDeliverables(bindings)
	r.Passed = len(r.Issues) == 0
	return *r
}

func (r *Result) record(id string, passed bool, detail string) {
	r.Checks = append(r.Checks, receipt.Check{ID: id, Passed: passed, Detail: detail})
}

func (r *Result) fail(issue, fix string) {
	r.Issues = append(r.Issues, issue)
	r.Fixes = append(r.Fixes, fix)
}

func (r *Result) checkRequired(bindings map[string]any) {
	var missing []string
	for _, field := range requiredFields {
		if isEmpty(bindings[field]) {
			missing = append(missing, field)
			r.fail(
				fmt.Sprintf("missing required field %q", field),
				fmt.Sprintf("provide a value for %q", field),
			)
		}
	}
	r.record("required_fields", len(missing) == 0, strings.Join(missing, ", "))
}

func (r *Result) checkBudget(bindings map[string]any) {
	raw := bindings["budget"]
	if isEmpty(raw) {
		return
	}
	value, ok := asNumber(raw)
	if !ok {
		r.fail("budget is not a number", "enter the budget as a plain number")
		r.record("budget_range", false, fmt.Sprintf("%v", raw))
		return
	}
	if value < budgetMin || value > budgetMax {
		r.fail(
			fmt.Sprintf("budget %v outside the allowed range %d..%d", value, budgetMin, budgetMax),
			fmt.Sprintf("choose a budget between %d and %d", budgetMin, budgetMax),
		)
		r.record("budget_range", false, fmt.Sprintf("%v", value))
		return
	}
	r.record("budget_range", true, "")
}

func (r *Result) checkTimeline(bindings map[string]any) {
	raw, ok := bindings["timeline"].(string)
	if !ok || raw == "" {
		return
	}
	for _, pattern := range timelinePatterns {
		if pattern.MatchString(raw) {
			r.record("timeline_format", true, "")
			return
		}
	}
	r.fail(
		fmt.Sprintf("timeline %q is not a recognized format", raw),
		`use a quarter (2024-Q2), a date (2024-06-30), or a month (June 2024)`,
	)
	r.record("timeline_format", false, raw)
}

func (r *Result) checkURLs(bindings map[string]any) {
	checked := false
	ok := true
	for _, field := range urlFields {
		raw, present := bindings[field].(string)
		if !present || raw == "" {
			continue
		}
		checked = true
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			ok = false
			r.fail(
				fmt.Sprintf("%s %q is not a valid http(s) URL", field, raw),
				fmt.Sprintf("give %s a full URL including the scheme", field),
			)
		}
	}
	if checked {
		r.record("url_sanity", ok, "")
	}
}

func (r *Result) checkDeliverables(bindings map[string]any) {
	raw, ok := bindings["deliverables"].(string)
	if !ok || raw == "" {
		return
	}
	lowered := strings.ToLower(raw)
	var missing []string
	for _, keyword := range starKeywords {
		if !strings.Contains(lowered, keyword) {
			missing = append(missing, keyword)
		}
	}
	if len(missing) > 0 {
		r.fail(
			fmt.Sprintf("deliverables are missing STAR elements: %s", strings.Join(missing, ", ")),
			"describe the situation, task, action, and result explicitly",
		)
	}
	r.record("star_structure", len(missing) == 0, strings.Join(missing, ", "))
}

func isEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	default:
		return false
	}
}

func asNumber(v any) (float64, bool) {
	switch value := v.(type) {
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
