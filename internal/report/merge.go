package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a loaded document cannot be reconciled into a Report.
var ErrMalformed = errors.New("malformed report document")

// #region merge
// MergeLoaded reconciles an external, possibly partial or older-shaped JSON
// document over base. Keys present in data override base; a list present in
// data replaces the base list entirely and each of its elements is merged over
// the default element; request tallies are merged key by key and always end
// up holding exactly the fixed topic set. On error base is returned unchanged.
func MergeLoaded(base Report, data []byte) (Report, error) {
	var in loadedReport
	if err := json.Unmarshal(data, &in); err != nil {
		return base, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := base.Clone()
	if g := in.GeneralInfo; g != nil {
		g.mergeInto(&out.GeneralInfo)
	}
	if in.Legislation != nil {
		out.Legislation = make([]Legislation, len(*in.Legislation))
		for i, l := range *in.Legislation {
			out.Legislation[i] = l.merged()
		}
	}
	if c := in.CitizenRequests; c != nil {
		c.mergeInto(&out.CitizenRequests)
	}
	if s := in.SvoSupport; s != nil && s.Projects != nil {
		out.SvoSupport.Projects = mergeEntries(*s.Projects)
	}
	if in.ProjectActivity != nil {
		out.ProjectActivity = make([]ProjectActivity, len(*in.ProjectActivity))
		for i, p := range *in.ProjectActivity {
			item := NewProjectActivity()
			setString(&item.Name, p.Name)
			setString(&item.Result, p.Result)
			out.ProjectActivity[i] = item
		}
	}
	if in.LdprOrders != nil {
		out.LdprOrders = make([]LdprOrder, len(*in.LdprOrders))
		for i, o := range *in.LdprOrders {
			item := NewLdprOrder()
			setString(&item.Instruction, o.Instruction)
			setString(&item.Action, o.Action)
			out.LdprOrders[i] = item
		}
	}
	setString(&out.OtherInfo, in.OtherInfo)
	return out, nil
}
// #endregion merge

// #region loaded-types
type loadedReport struct {
	GeneralInfo     *loadedGeneralInfo       `json:"general_info"`
	Legislation     *[]loadedLegislation     `json:"legislation"`
	CitizenRequests *loadedCitizenRequests   `json:"citizen_requests"`
	SvoSupport      *loadedSvoSupport        `json:"svo_support"`
	ProjectActivity *[]loadedProjectActivity `json:"project_activity"`
	LdprOrders      *[]loadedLdprOrder       `json:"ldpr_orders"`
	OtherInfo       *flexString              `json:"other_info"`
}

type loadedGeneralInfo struct {
	FullName         *flexString             `json:"full_name"`
	District         *flexString             `json:"district"`
	Region           *flexString             `json:"region"`
	AuthorityName    *flexString             `json:"authority_name"`
	TermStart        *flexString             `json:"term_start"`
	TermEnd          *flexString             `json:"term_end"`
	Position         *flexString             `json:"position"`
	LdprPosition     *flexString             `json:"ldpr_position"`
	Links            *[]flexString           `json:"links"`
	Committees       *[]flexString           `json:"committees"`
	SessionsAttended *loadedSessionsAttended `json:"sessions_attended"`
}

type loadedSessionsAttended struct {
	Total             *flexString `json:"total"`
	Attended          *flexString `json:"attended"`
	CommitteeTotal    *flexString `json:"committee_total"`
	CommitteeAttended *flexString `json:"committee_attended"`
	LdprTotal         *flexString `json:"ldpr_total"`
	LdprAttended      *flexString `json:"ldpr_attended"`
}

type loadedLegislation struct {
	Title           *flexString   `json:"title"`
	Summary         *flexString   `json:"summary"`
	Status          *flexString   `json:"status"`
	RejectionReason *flexString   `json:"rejection_reason"`
	Links           *[]flexString `json:"links"`
}

type loadedCitizenRequests struct {
	PersonalMeetings *flexString           `json:"personal_meetings"`
	Responses        *flexString           `json:"responses"`
	OfficialQueries  *flexString           `json:"official_queries"`
	TotalRequests    *flexString           `json:"total_requests"`
	Requests         map[string]flexString `json:"requests"`
	Examples         *[]loadedEntry        `json:"examples"`
}

type loadedSvoSupport struct {
	Projects *[]loadedEntry `json:"projects"`
}

type loadedProjectActivity struct {
	Name   *flexString `json:"name"`
	Result *flexString `json:"result"`
}

type loadedLdprOrder struct {
	Instruction *flexString `json:"instruction"`
	Action      *flexString `json:"action"`
}

// loadedEntry accepts both the current {text, links} object and the plain
// string entries written by older revisions.
type loadedEntry struct {
	Text  *flexString   `json:"text"`
	Links *[]flexString `json:"links"`
}

func (e *loadedEntry) UnmarshalJSON(b []byte) error {
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '"' {
		var s flexString
		if err := json.Unmarshal(t, &s); err != nil {
			return err
		}
		e.Text = &s
		return nil
	}
	type plain loadedEntry
	return json.Unmarshal(b, (*plain)(e))
}

// flexString is a string leaf that also accepts JSON numbers, which older
// drafts used for counters.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
	case string:
		*f = flexString(x)
	case json.Number:
		*f = flexString(x.String())
	default:
		return fmt.Errorf("expected string, got %s", b)
	}
	return nil
}
// #endregion loaded-types

// #region merge-helpers
func (g *loadedGeneralInfo) mergeInto(dst *GeneralInfo) {
	setString(&dst.FullName, g.FullName)
	setString(&dst.District, g.District)
	setString(&dst.Region, g.Region)
	setString(&dst.AuthorityName, g.AuthorityName)
	setString(&dst.TermStart, g.TermStart)
	setString(&dst.TermEnd, g.TermEnd)
	setString(&dst.Position, g.Position)
	setString(&dst.LdprPosition, g.LdprPosition)
	setStrings(&dst.Links, g.Links)
	setStrings(&dst.Committees, g.Committees)
	if s := g.SessionsAttended; s != nil {
		sa := &dst.SessionsAttended
		setString(&sa.Total, s.Total)
		setString(&sa.Attended, s.Attended)
		setString(&sa.CommitteeTotal, s.CommitteeTotal)
		setString(&sa.CommitteeAttended, s.CommitteeAttended)
		setString(&sa.LdprTotal, s.LdprTotal)
		setString(&sa.LdprAttended, s.LdprAttended)
	}
}

func (l loadedLegislation) merged() Legislation {
	item := NewLegislation()
	setString(&item.Title, l.Title)
	setString(&item.Summary, l.Summary)
	if l.Status != nil {
		item.Status = ParseStatus(string(*l.Status))
	}
	setString(&item.RejectionReason, l.RejectionReason)
	setStrings(&item.Links, l.Links)
	return item
}

func (c *loadedCitizenRequests) mergeInto(dst *CitizenRequests) {
	setString(&dst.PersonalMeetings, c.PersonalMeetings)
	setString(&dst.Responses, c.Responses)
	setString(&dst.OfficialQueries, c.OfficialQueries)
	setString(&dst.TotalRequests, c.TotalRequests)

	merged := DefaultRequests()
	for k, v := range dst.Requests {
		if IsTopic(k) {
			merged[k] = v
		}
	}
	for k, v := range c.Requests {
		if IsTopic(k) {
			merged[k] = string(v)
		}
	}
	dst.Requests = merged

	if c.Examples != nil {
		dst.Examples = mergeEntries(*c.Examples)
	}
}

func mergeEntries(in []loadedEntry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		item := NewEntry()
		setString(&item.Text, e.Text)
		setStrings(&item.Links, e.Links)
		out[i] = item
	}
	return out
}

func setString(dst *string, v *flexString) {
	if v != nil {
		*dst = string(*v)
	}
}

func setStrings(dst *[]string, v *[]flexString) {
	if v == nil {
		return
	}
	out := make([]string, len(*v))
	for i, s := range *v {
		out[i] = string(s)
	}
	*dst = out
}
// #endregion merge-helpers
