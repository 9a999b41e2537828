package artifact

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MrDragar/LDPR-reports-generator/internal/normalize"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

const (
	sheetGeneral     = "Общие сведения"
	sheetRequests    = "Обращения"
	sheetLegislation = "Законопроекты"
)

// ExportXLSX renders the normalized report as a workbook with a general
// sheet, a per-topic request tally and the legislation list.
func ExportXLSX(r report.Report, prefix string, now time.Time) (string, []byte, error) {
	n := normalize.Report(r)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetGeneral); err != nil {
		return "", nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, s := range []string{sheetRequests, sheetLegislation} {
		if _, err := f.NewSheet(s); err != nil {
			return "", nil, fmt.Errorf("new sheet %s: %w", s, err)
		}
	}

	for _, s := range []struct {
		name string
		rows [][]any
	}{
		{sheetGeneral, generalRows(n)},
		{sheetRequests, requestRows(n.CitizenRequests)},
		{sheetLegislation, legislationRows(n.Legislation)},
	} {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return "", nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("write workbook: %w", err)
	}
	return FileName(prefix, r.FullNameOrDefault(), now, "xlsx"), buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return fmt.Errorf("write sheet %s: %w", sheet, err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write sheet %s cell %s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func generalRows(r report.Report) [][]any {
	g := r.GeneralInfo
	s := g.SessionsAttended
	return [][]any{
		{"Поле", "Значение"},
		{"ФИО", g.FullName},
		{"Избирательный округ", g.District},
		{"Субъект РФ", g.Region},
		{"Орган власти", g.AuthorityName},
		{"Начало полномочий", g.TermStart},
		{"Окончание полномочий", g.TermEnd},
		{"Должность", g.Position},
		{"Должность в ЛДПР", g.LdprPosition},
		{"Комитеты", strings.Join(g.Committees, "; ")},
		{"Ссылки", strings.Join(g.Links, "; ")},
		{"Заседания (всего/посещено)", s.Total + "/" + s.Attended},
		{"Комитеты (всего/посещено)", s.CommitteeTotal + "/" + s.CommitteeAttended},
		{"Фракция ЛДПР (всего/посещено)", s.LdprTotal + "/" + s.LdprAttended},
		{"Личные приемы", count(r.CitizenRequests.PersonalMeetings)},
		{"Ответы на обращения", count(r.CitizenRequests.Responses)},
		{"Депутатские запросы", count(r.CitizenRequests.OfficialQueries)},
		{"Иная информация", r.OtherInfo},
	}
}

func requestRows(c report.CitizenRequests) [][]any {
	rows := [][]any{{"Тема", "Количество"}}
	for _, t := range report.Topics {
		rows = append(rows, []any{t.Label, count(c.Requests[t.Key])})
	}
	return append(rows, []any{"Всего", count(c.TotalRequests)})
}

func legislationRows(ls []report.Legislation) [][]any {
	rows := [][]any{{"Название", "Краткое содержание", "Статус", "Причина отклонения", "Ссылки"}}
	for _, l := range ls {
		rows = append(rows, []any{l.Title, l.Summary, l.Status.Label(), l.RejectionReason, strings.Join(l.Links, "; ")})
	}
	return rows
}

// count writes well-formed tallies as numbers and anything else verbatim.
func count(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return v
}
