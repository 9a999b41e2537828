package report

// #region report
// Report is the root document collected by the form. Field order here is the
// field order of every JSON encoding (draft, export, submission payload).
type Report struct {
	GeneralInfo     GeneralInfo       `json:"general_info"`
	Legislation     []Legislation     `json:"legislation"`
	CitizenRequests CitizenRequests   `json:"citizen_requests"`
	SvoSupport      SvoSupport        `json:"svo_support"`
	ProjectActivity []ProjectActivity `json:"project_activity"`
	LdprOrders      []LdprOrder       `json:"ldpr_orders"`
	OtherInfo       string            `json:"other_info"`
}
// #endregion report

// #region general-info
// GeneralInfo identifies the representative and their term.
type GeneralInfo struct {
	FullName         string           `json:"full_name"`
	District         string           `json:"district"`
	Region           string           `json:"region"`
	AuthorityName    string           `json:"authority_name"`
	TermStart        string           `json:"term_start"`
	TermEnd          string           `json:"term_end"`
	Position         string           `json:"position"`
	LdprPosition     string           `json:"ldpr_position"`
	Links            []string         `json:"links"`
	Committees       []string         `json:"committees"`
	SessionsAttended SessionsAttended `json:"sessions_attended"`
}

// SessionsAttended holds three (total, attended) counter pairs: plenary
// sessions of the representative body, committee sessions and party-fraction
// sessions. All values are numeric strings.
type SessionsAttended struct {
	Total             string `json:"total"`
	Attended          string `json:"attended"`
	CommitteeTotal    string `json:"committee_total"`
	CommitteeAttended string `json:"committee_attended"`
	LdprTotal         string `json:"ldpr_total"`
	LdprAttended      string `json:"ldpr_attended"`
}
// #endregion general-info

// #region legislation
// Status is the lifecycle stage of a legislative initiative.
type Status string

const (
	StatusNone      Status = ""
	StatusSubmitted Status = "submitted"
	StatusPassed    Status = "passed"
	StatusRejected  Status = "rejected"
)

var statusLabels = map[Status]string{
	StatusSubmitted: "Внесен и находится на рассмотрении",
	StatusPassed:    "Принят",
	StatusRejected:  "Отклонен",
}

// Label returns the Russian display label, or the raw value for unknown statuses.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Known reports whether s is empty or one of the three lifecycle stages.
func (s Status) Known() bool {
	_, ok := statusLabels[s]
	return ok || s == StatusNone
}

// ParseStatus accepts either the internal value or the display label written
// by older revisions of the form. Unknown values are kept verbatim.
func ParseStatus(v string) Status {
	for st, label := range statusLabels {
		if v == string(st) || v == label {
			return st
		}
	}
	return Status(v)
}

// Legislation is one legislative initiative authored or co-authored by the representative.
type Legislation struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Status          Status   `json:"status"`
	RejectionReason string   `json:"rejection_reason"`
	Links           []string `json:"links"`
}
// #endregion legislation

// #region citizen-requests
// CitizenRequests summarizes work with constituents' appeals.
type CitizenRequests struct {
	PersonalMeetings string            `json:"personal_meetings"`
	Responses        string            `json:"responses"`
	OfficialQueries  string            `json:"official_queries"`
	TotalRequests    string            `json:"total_requests"`
	Requests         map[string]string `json:"requests"`
	Examples         []Entry           `json:"examples"`
}

// Entry is a free-text item with optional supporting links.
type Entry struct {
	Text  string   `json:"text"`
	Links []string `json:"links"`
}

// SvoSupport lists support projects for the special military operation.
type SvoSupport struct {
	Projects []Entry `json:"projects"`
}
// #endregion citizen-requests

// #region activity
// ProjectActivity is a party project the representative took part in.
type ProjectActivity struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// LdprOrder is an instruction of the party chairman and the action taken on it.
type LdprOrder struct {
	Instruction string `json:"instruction"`
	Action      string `json:"action"`
}
// #endregion activity
