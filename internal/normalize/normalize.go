// Package normalize derives the outbound form of a report: the shape that is
// exported to a file and posted to the report service.
package normalize

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

var checker = validator.New()

// Report returns the normalized copy of r. It is pure and idempotent:
// Report(Report(r)) equals Report(r).
func Report(r report.Report) report.Report {
	out := r.Clone()

	out.GeneralInfo.Links = plainList(out.GeneralInfo.Links)
	out.GeneralInfo.Committees = plainList(out.GeneralInfo.Committees)
	out.CitizenRequests.Examples = entryList(out.CitizenRequests.Examples)
	out.SvoSupport.Projects = entryList(out.SvoSupport.Projects)

	out.Legislation = legislation(out.Legislation)
	out.ProjectActivity = keepIf(out.ProjectActivity, func(p report.ProjectActivity) bool {
		return !allBlank(p.Name, p.Result)
	})
	out.LdprOrders = keepIf(out.LdprOrders, func(o report.LdprOrder) bool {
		return !allBlank(o.Instruction, o.Action)
	})

	counters(&out.CitizenRequests)
	return out
}

// #region lists
func links(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// plainList keeps one blank row when nothing survives.
func plainList(in []string) []string {
	out := links(in)
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

func entryList(in []report.Entry) []report.Entry {
	out := make([]report.Entry, 0, len(in))
	for _, e := range in {
		e.Text = strings.TrimSpace(e.Text)
		e.Links = links(e.Links)
		if e.Text == "" && len(e.Links) == 0 {
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return []report.Entry{report.NewEntry()}
	}
	return out
}

func legislation(in []report.Legislation) []report.Legislation {
	out := make([]report.Legislation, 0, len(in))
	for _, l := range in {
		l.Links = links(l.Links)
		if allBlank(l.Title, l.Summary, string(l.Status), l.RejectionReason) && len(l.Links) == 0 {
			continue
		}
		out = append(out, l)
	}
	return out
}

func keepIf[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func allBlank(vs ...string) bool {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
// #endregion lists

// #region counters
// counters zero-fills blank counters and topic tallies, then recomputes
// total_requests. Malformed values are left for the validator to report.
func counters(c *report.CitizenRequests) {
	for _, v := range []*string{&c.PersonalMeetings, &c.Responses, &c.OfficialQueries} {
		if strings.TrimSpace(*v) == "" {
			*v = "0"
		}
	}

	requests := make(map[string]string, len(report.Topics))
	for k, v := range c.Requests {
		requests[k] = v
	}
	total := decimal.Zero
	for _, t := range report.Topics {
		v := requests[t.Key]
		if strings.TrimSpace(v) == "" {
			v = "0"
		}
		requests[t.Key] = v
		if checker.Var(v, "number") != nil {
			continue
		}
		if d, err := decimal.NewFromString(v); err == nil {
			total = total.Add(d)
		}
	}
	c.Requests = requests
	c.TotalRequests = total.String()
}
// #endregion counters
