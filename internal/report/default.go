package report

import "strings"

// #region topics
// Topic is one category of citizen requests tallied in the report.
type Topic struct {
	Key   string
	Label string
}

// Topics is the fixed, display-ordered set of request categories.
var Topics = []Topic{
	{"utilities", "ЖКХ"},
	{"pensions_and_social_payments", "Пенсии и соцвыплаты"},
	{"improvement", "Благоустройство"},
	{"education", "Образование"},
	{"svo", "СВО"},
	{"road_maintenance", "Ремонт и содержание дорог"},
	{"ecology", "Экология"},
	{"medicine_and_healthcare", "Медицина и здравоохранение"},
	{"public_transport", "Общественный транспорт"},
	{"illegal_dumps", "Несанкционированные свалки"},
	{"appeals_to_ldpr_chairman", "Обращения к Председателю ЛДПР"},
	{"legal_aid_requests", "Юридическая помощь"},
	{"integrated_territory_development", "Развитие территорий"},
	{"stray_animal_issues", "Бездомные животные"},
	{"legislative_proposals", "Законодательные инициативы"},
}

// IsTopic reports whether key belongs to the fixed topic set.
func IsTopic(key string) bool {
	for _, t := range Topics {
		if t.Key == key {
			return true
		}
	}
	return false
}

// TopicLabel returns the display label for a topic key.
func TopicLabel(key string) string {
	for _, t := range Topics {
		if t.Key == key {
			return t.Label
		}
	}
	return key
}
// #endregion topics

// #region defaults
// Default returns an empty report. String lists start with one blank row so a
// form always shows an input; record lists start empty.
func Default() Report {
	return Report{
		GeneralInfo: GeneralInfo{
			Links:      []string{""},
			Committees: []string{""},
		},
		Legislation: []Legislation{},
		CitizenRequests: CitizenRequests{
			Requests: DefaultRequests(),
			Examples: []Entry{NewEntry()},
		},
		SvoSupport: SvoSupport{
			Projects: []Entry{NewEntry()},
		},
		ProjectActivity: []ProjectActivity{},
		LdprOrders:      []LdprOrder{},
	}
}

// DefaultRequests returns every topic key mapped to "".
func DefaultRequests() map[string]string {
	m := make(map[string]string, len(Topics))
	for _, t := range Topics {
		m[t.Key] = ""
	}
	return m
}

// NewEntry returns a blank entry with one blank link row.
func NewEntry() Entry {
	return Entry{Links: []string{""}}
}

// NewLegislation returns a blank legislation element.
func NewLegislation() Legislation {
	return Legislation{Links: []string{""}}
}

// NewProjectActivity returns a blank project activity element.
func NewProjectActivity() ProjectActivity {
	return ProjectActivity{}
}

// NewLdprOrder returns a blank order element.
func NewLdprOrder() LdprOrder {
	return LdprOrder{}
}
// #endregion defaults

// #region clone
// Clone returns a deep copy that shares no slice or map with r.
func (r Report) Clone() Report {
	out := r
	out.GeneralInfo.Links = cloneStrings(r.GeneralInfo.Links)
	out.GeneralInfo.Committees = cloneStrings(r.GeneralInfo.Committees)

	out.Legislation = make([]Legislation, len(r.Legislation))
	for i, l := range r.Legislation {
		l.Links = cloneStrings(l.Links)
		out.Legislation[i] = l
	}

	out.CitizenRequests.Requests = make(map[string]string, len(r.CitizenRequests.Requests))
	for k, v := range r.CitizenRequests.Requests {
		out.CitizenRequests.Requests[k] = v
	}
	out.CitizenRequests.Examples = cloneEntries(r.CitizenRequests.Examples)
	out.SvoSupport.Projects = cloneEntries(r.SvoSupport.Projects)

	out.ProjectActivity = append(make([]ProjectActivity, 0, len(r.ProjectActivity)), r.ProjectActivity...)
	out.LdprOrders = append(make([]LdprOrder, 0, len(r.LdprOrders)), r.LdprOrders...)
	return out
}

func cloneStrings(s []string) []string {
	return append(make([]string, 0, len(s)), s...)
}

func cloneEntries(es []Entry) []Entry {
	out := make([]Entry, len(es))
	for i, e := range es {
		out[i] = Entry{Text: e.Text, Links: cloneStrings(e.Links)}
	}
	return out
}
// #endregion clone

// FullNameOrDefault returns the trimmed full name, or "deputy" when it is blank.
func (r Report) FullNameOrDefault() string {
	if n := strings.TrimSpace(r.GeneralInfo.FullName); n != "" {
		return n
	}
	return "deputy"
}
