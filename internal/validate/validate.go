package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// #region errors-type
// Errors maps a stable field path (e.g. "legislation.2.rejection_reason") to
// the message shown next to that control.
type Errors map[string]string

// Has reports whether path carries an error.
func (e Errors) Has(path string) bool {
	_, ok := e[path]
	return ok
}

// Empty reports whether there are no errors at all.
func (e Errors) Empty() bool { return len(e) == 0 }

// Paths returns the error paths in sorted order.
func (e Errors) Paths() []string {
	out := make([]string, 0, len(e))
	for p := range e {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
// #endregion errors-type

// #region latch
// Latch is the one-way "submission attempted" flag: false until the first
// submit attempt, true afterwards until Reset.
type Latch struct {
	attempted bool
}

func (l *Latch) Set()            { l.attempted = true }
func (l *Latch) Reset()          { l.attempted = false }
func (l *Latch) Attempted() bool { return l.attempted }
// #endregion latch

// #region rule-tables
var checker = validator.New()

type sessionPair struct {
	total, attended string
	label           string
}

var sessionPairs = []sessionPair{
	{"total", "attended", "Коллегиального органа власти"},
	{"committee_total", "committee_attended", "Комитетов/комиссий"},
	{"ldpr_total", "ldpr_attended", "Фракции ЛДПР"},
}

type requiredField struct {
	key     string
	message string
	value   func(g report.GeneralInfo) string
}

var requiredGeneralInfo = []requiredField{
	{"full_name", "ФИО депутата обязательно для заполнения.", func(g report.GeneralInfo) string { return g.FullName }},
	{"district", "Избирательный округ обязателен для заполнения.", func(g report.GeneralInfo) string { return g.District }},
	{"region", "Субъект Российской Федерации обязателен для заполнения.", func(g report.GeneralInfo) string { return g.Region }},
	{"authority_name", "Наименование органа власти обязательно для заполнения.", func(g report.GeneralInfo) string { return g.AuthorityName }},
	{"term_start", "Дата начала полномочий обязательна для заполнения.", func(g report.GeneralInfo) string { return g.TermStart }},
	{"position", "Должность обязательна для заполнения.", func(g report.GeneralInfo) string { return g.Position }},
}

var counterLabels = map[string]string{
	"personal_meetings": "Количество личных приемов граждан и встреч с избирателями",
	"responses":         "Количество данных ответов на обращения граждан",
	"official_queries":  "Количество депутатских запросов и обращений",
}
// #endregion rule-tables

// #region validate
// Validate derives the field errors of r. Required-field rules apply only once
// a submission has been attempted; format and cross-field rules always apply.
// Rules run in order required, format, cross-field, so a later message
// replaces an earlier one on the same path.
func Validate(r report.Report, attempted bool) Errors {
	errs := Errors{}
	if attempted {
		checkRequired(r, errs)
	}
	checkFormat(r, errs)
	checkAttendance(r.GeneralInfo.SessionsAttended, errs)
	return errs
}

func checkRequired(r report.Report, errs Errors) {
	for _, f := range requiredGeneralInfo {
		if blank(f.value(r.GeneralInfo)) {
			errs["general_info."+f.key] = f.message
		}
	}

	sessions := sessionValues(r.GeneralInfo.SessionsAttended)
	for _, p := range sessionPairs {
		if blank(sessions[p.total]) {
			errs["sessions_attended."+p.total] = fmt.Sprintf("%s (всего): обязательно для заполнения.", p.label)
		}
		if blank(sessions[p.attended]) {
			errs["sessions_attended."+p.attended] = fmt.Sprintf("%s (посещено): обязательно для заполнения.", p.label)
		}
	}

	for i, l := range r.Legislation {
		prefix := fmt.Sprintf("legislation.%d.", i)
		if blank(l.Title) {
			errs[prefix+"title"] = "Название законопроекта обязательно для заполнения."
		}
		if blank(l.Summary) {
			errs[prefix+"summary"] = "Краткое содержание обязательно для заполнения."
		}
		if blank(string(l.Status)) {
			errs[prefix+"status"] = "Выберите статус законопроекта."
		}
		if report.ParseStatus(string(l.Status)) == report.StatusRejected && blank(l.RejectionReason) {
			errs[prefix+"rejection_reason"] = "Укажите причину отклонения."
		}
	}

	for i, p := range r.ProjectActivity {
		prefix := fmt.Sprintf("project_activity.%d.", i)
		if blank(p.Name) {
			errs[prefix+"name"] = "Название проекта обязательно для заполнения."
		}
		if blank(p.Result) {
			errs[prefix+"result"] = "Результат обязателен для заполнения."
		}
	}

	for i, o := range r.LdprOrders {
		prefix := fmt.Sprintf("ldpr_orders.%d.", i)
		if blank(o.Instruction) {
			errs[prefix+"instruction"] = "Поручение обязательно для заполнения."
		}
		if blank(o.Action) {
			errs[prefix+"action"] = "Проделанная работа обязательна для заполнения."
		}
	}
}

func checkFormat(r report.Report, errs Errors) {
	c := r.CitizenRequests
	counters := map[string]string{
		"personal_meetings": c.PersonalMeetings,
		"responses":         c.Responses,
		"official_queries":  c.OfficialQueries,
	}
	for key, v := range counters {
		if v != "" && !isNumber(v) {
			errs["citizen_requests."+key] = fmt.Sprintf("%s: должно быть целое число.", counterLabels[key])
		}
	}

	for _, t := range report.Topics {
		if v := c.Requests[t.Key]; v != "" && !isNumber(v) {
			errs["requests."+t.Key] = fmt.Sprintf("%s: должно быть целое число.", t.Label)
		}
	}

	sessions := sessionValues(r.GeneralInfo.SessionsAttended)
	for _, p := range sessionPairs {
		if v := sessions[p.total]; v != "" && !isNumber(v) {
			errs["sessions_attended."+p.total] = fmt.Sprintf("%s (всего): должно быть целое число.", p.label)
		}
		if v := sessions[p.attended]; v != "" && !isNumber(v) {
			errs["sessions_attended."+p.attended] = fmt.Sprintf("%s (посещено): должно быть целое число.", p.label)
		}
	}
}

// checkAttendance flags attended > total for every pair whose two values are
// both well-formed.
func checkAttendance(s report.SessionsAttended, errs Errors) {
	sessions := sessionValues(s)
	for _, p := range sessionPairs {
		total, attended := sessions[p.total], sessions[p.attended]
		if total == "" || attended == "" || !isNumber(total) || !isNumber(attended) {
			continue
		}
		t, err1 := decimal.NewFromString(total)
		a, err2 := decimal.NewFromString(attended)
		if err1 != nil || err2 != nil {
			continue
		}
		if a.GreaterThan(t) {
			errs["sessions_attended."+p.attended] = fmt.Sprintf("%s: посещено не может превышать общее количество.", p.label)
		}
	}
}
// #endregion validate

// #region helpers
func sessionValues(s report.SessionsAttended) map[string]string {
	return map[string]string{
		"total":              s.Total,
		"attended":           s.Attended,
		"committee_total":    s.CommitteeTotal,
		"committee_attended": s.CommitteeAttended,
		"ldpr_total":         s.LdprTotal,
		"ldpr_attended":      s.LdprAttended,
	}
}

// blank treats whitespace-only values as empty.
func blank(v string) bool {
	return checker.Var(strings.TrimSpace(v), "required") != nil
}

// isNumber matches ^[0-9]+$.
func isNumber(v string) bool {
	return checker.Var(v, "number") == nil
}
// #endregion helpers
