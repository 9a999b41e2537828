// Package mutate holds the pure update operations over a report. Every
// operation takes the current report by value and returns a new one built from
// a deep clone; the argument is never modified.
package mutate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// #region names
// Section names a top-level record of the report.
type Section string

const (
	GeneralInfo     Section = "general_info"
	CitizenRequests Section = "citizen_requests"
	SvoSupport      Section = "svo_support"
	OtherInfo       Section = "other_info"
)

// List names a top-level list of records.
type List string

const (
	Legislation     List = "legislation"
	ProjectActivity List = "project_activity"
	LdprOrders      List = "ldpr_orders"
)
// #endregion names

// #region errors
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrValueType       = errors.New("wrong value type")
	ErrIndexOutOfRange = errors.New("index out of range")
)

func unknownField(section Section, key string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownField, section, key)
}

func wrongType(section Section, key string, value any) error {
	return fmt.Errorf("%w: %s.%s got %T", ErrValueType, section, key, value)
}

// rangeError is the panic value of an out-of-range index. Callers that take
// indices from untrusted input go through Apply, which recovers it.
type rangeError struct {
	name  string
	index int
	n     int
}

func (e rangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0,%d)", e.name, e.index, e.n)
}

func mustIndex(name string, index, n int) {
	if index < 0 || index >= n {
		panic(rangeError{name: name, index: index, n: n})
	}
}
// #endregion errors

// #region set-field
// SetField replaces one scalar or record-valued field inside a section.
// A dotted key ("sessions_attended.total", "requests.utilities") addresses a
// single leaf of a nested record. other_info takes an empty key.
func SetField(r report.Report, section Section, key string, value any) (report.Report, error) {
	out := r.Clone()
	var err error
	switch section {
	case OtherInfo:
		if key != "" {
			return r, unknownField(section, key)
		}
		s, ok := value.(string)
		if !ok {
			return r, wrongType(section, key, value)
		}
		out.OtherInfo = s
	case GeneralInfo:
		err = setGeneralInfo(&out.GeneralInfo, key, value)
	case CitizenRequests:
		err = setCitizenRequests(&out.CitizenRequests, key, value)
	case SvoSupport:
		if key != "projects" {
			return r, unknownField(section, key)
		}
		es, ok := value.([]report.Entry)
		if !ok {
			return r, wrongType(section, key, value)
		}
		out.SvoSupport.Projects = cloneEntries(es)
	default:
		return r, unknownField(section, key)
	}
	if err != nil {
		return r, err
	}
	return out, nil
}

func setGeneralInfo(g *report.GeneralInfo, key string, value any) error {
	if rest, ok := strings.CutPrefix(key, "sessions_attended."); ok {
		p := sessionFields(&g.SessionsAttended)[rest]
		if p == nil {
			return unknownField(GeneralInfo, key)
		}
		return assignString(p, GeneralInfo, key, value)
	}
	switch key {
	case "sessions_attended":
		sa, ok := value.(report.SessionsAttended)
		if !ok {
			return wrongType(GeneralInfo, key, value)
		}
		g.SessionsAttended = sa
		return nil
	case "links", "committees":
		ss, ok := value.([]string)
		if !ok {
			return wrongType(GeneralInfo, key, value)
		}
		if key == "links" {
			g.Links = append([]string{}, ss...)
		} else {
			g.Committees = append([]string{}, ss...)
		}
		return nil
	}
	fields := map[string]*string{
		"full_name":      &g.FullName,
		"district":       &g.District,
		"region":         &g.Region,
		"authority_name": &g.AuthorityName,
		"term_start":     &g.TermStart,
		"term_end":       &g.TermEnd,
		"position":       &g.Position,
		"ldpr_position":  &g.LdprPosition,
	}
	p := fields[key]
	if p == nil {
		return unknownField(GeneralInfo, key)
	}
	return assignString(p, GeneralInfo, key, value)
}

func sessionFields(s *report.SessionsAttended) map[string]*string {
	return map[string]*string{
		"total":              &s.Total,
		"attended":           &s.Attended,
		"committee_total":    &s.CommitteeTotal,
		"committee_attended": &s.CommitteeAttended,
		"ldpr_total":         &s.LdprTotal,
		"ldpr_attended":      &s.LdprAttended,
	}
}

func setCitizenRequests(c *report.CitizenRequests, key string, value any) error {
	if topic, ok := strings.CutPrefix(key, "requests."); ok {
		if !report.IsTopic(topic) {
			return unknownField(CitizenRequests, key)
		}
		s, ok := value.(string)
		if !ok {
			return wrongType(CitizenRequests, key, value)
		}
		c.Requests[topic] = s
		return nil
	}
	switch key {
	case "requests":
		m, ok := value.(map[string]string)
		if !ok {
			return wrongType(CitizenRequests, key, value)
		}
		next := report.DefaultRequests()
		for k, v := range m {
			if !report.IsTopic(k) {
				return unknownField(CitizenRequests, "requests."+k)
			}
			next[k] = v
		}
		c.Requests = next
		return nil
	case "examples":
		es, ok := value.([]report.Entry)
		if !ok {
			return wrongType(CitizenRequests, key, value)
		}
		c.Examples = cloneEntries(es)
		return nil
	}
	fields := map[string]*string{
		"personal_meetings": &c.PersonalMeetings,
		"responses":         &c.Responses,
		"official_queries":  &c.OfficialQueries,
		"total_requests":    &c.TotalRequests,
	}
	p := fields[key]
	if p == nil {
		return unknownField(CitizenRequests, key)
	}
	return assignString(p, CitizenRequests, key, value)
}

func assignString(p *string, section Section, key string, value any) error {
	s, ok := value.(string)
	if !ok {
		return wrongType(section, key, value)
	}
	*p = s
	return nil
}

func cloneEntries(es []report.Entry) []report.Entry {
	out := make([]report.Entry, len(es))
	for i, e := range es {
		out[i] = report.Entry{Text: e.Text, Links: append([]string{}, e.Links...)}
	}
	return out
}
// #endregion set-field
