package form

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/MrDragar/LDPR-reports-generator/internal/artifact"
	"github.com/MrDragar/LDPR-reports-generator/internal/draft"
	"github.com/MrDragar/LDPR-reports-generator/internal/mutate"
	"github.com/MrDragar/LDPR-reports-generator/internal/notice"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
	"github.com/MrDragar/LDPR-reports-generator/internal/reportsvc"
	"github.com/MrDragar/LDPR-reports-generator/internal/submit"
)

// #region helpers
type fixture struct {
	c      *Controller
	store  *draft.MemoryStore
	board  *notice.Board
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: draft.NewMemoryStore(), board: notice.NewBoard(0), status: http.StatusOK}
	t.Cleanup(f.board.Close)

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte("%PDF"))
			return
		}
		var buf bytes.Buffer
		buf.ReadFrom(r.Body)
		f.mu.Lock()
		f.bodies = append(f.bodies, buf.Bytes())
		status := f.status
		f.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "Succes", "message": srv.URL + "/media/r.pdf"})
	}))
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	now := func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	pipeline := submit.New(submit.Deps{
		Service:  reportsvc.New(reportsvc.Config{URL: srv.URL + "/", Timeout: 5 * time.Second}),
		Saver:    artifact.DirSaver{Dir: t.TempDir()},
		Logger:   logger,
		Endpoint: srv.URL + "/",
		Now:      now,
	})
	f.c = New(context.Background(), Deps{
		Draft:    draft.NewAdapter(f.store, logger),
		Notices:  f.board,
		Pipeline: pipeline,
		Logger:   logger,
		Prefix:   "ldpr_report",
		Now:      now,
	})
	return f
}

func (f *fixture) apply(t *testing.T, op mutate.Op) View {
	t.Helper()
	v, err := f.c.Apply(context.Background(), op)
	if err != nil {
		t.Fatalf("Apply(%+v): %v", op, err)
	}
	return v
}

func (f *fixture) fill(t *testing.T) {
	t.Helper()
	for key, val := range map[string]string{
		"full_name":                            "Иванов Иван",
		"district":                             "Округ №1",
		"region":                               "Тверская область",
		"authority_name":                       "Городская дума",
		"term_start":                           "01.09.2021",
		"position":                             "Депутат",
		"sessions_attended.total":              "10",
		"sessions_attended.attended":           "9",
		"sessions_attended.committee_total":    "3",
		"sessions_attended.committee_attended": "3",
		"sessions_attended.ldpr_total":         "2",
		"sessions_attended.ldpr_attended":      "2",
	} {
		f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "general_info", Field: key, Value: val})
	}
}

func lastNotice(b *notice.Board) notice.Notice {
	list := b.List()
	if len(list) == 0 {
		return notice.Notice{}
	}
	return list[len(list)-1]
}
// #endregion helpers

// #region edit-tests
func TestController_ApplySavesDraft(t *testing.T) {
	f := newFixture(t)
	v := f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "general_info", Field: "full_name", Value: "Петров"})
	if v.Report.GeneralInfo.FullName != "Петров" {
		t.Fatalf("report not updated")
	}

	restored, ok := draft.NewAdapter(f.store, nil).Load(context.Background())
	if !ok || restored.GeneralInfo.FullName != "Петров" {
		t.Fatal("every change must be saved to the draft")
	}
}

func TestController_DraftSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Fail = errors.New("disk full")
	v := f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "general_info", Field: "region", Value: "Москва"})
	if v.Report.GeneralInfo.Region != "Москва" {
		t.Fatal("a failed save must not lose the edit")
	}
	if n := lastNotice(f.board); n.Kind != notice.Error || n.Message != MsgDraftSaveFailed {
		t.Errorf("last notice = %+v", n)
	}
}

func TestController_FormatErrorsLive(t *testing.T) {
	f := newFixture(t)
	v := f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "citizen_requests", Field: "responses", Value: "3abc"})
	if !v.Errors.Has("citizen_requests.responses") {
		t.Fatal("format errors apply before any submit attempt")
	}
	if v.Errors.Has("general_info.full_name") {
		t.Fatal("required errors wait for the first submit attempt")
	}
}

func TestController_NoOpEditKeepsHistory(t *testing.T) {
	f := newFixture(t)
	v := f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "other_info", Value: ""})
	if v.CanUndo {
		t.Fatal("an edit that changes nothing must not create history")
	}
}

func TestController_RejectedEdit(t *testing.T) {
	f := newFixture(t)
	before := f.c.View()
	_, err := f.c.Apply(context.Background(), mutate.Op{Kind: mutate.OpRemoveListItem, List: "legislation", Index: mutate.At(3)})
	if !errors.Is(err, mutate.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if !reflect.DeepEqual(f.c.View(), before) {
		t.Fatal("a rejected edit must change nothing")
	}
}

func TestController_AppendRemoveUndo(t *testing.T) {
	f := newFixture(t)
	start := f.c.View().Report

	f.apply(t, mutate.Op{Kind: mutate.OpAppendListItem, List: "legislation"})
	v := f.apply(t, mutate.Op{Kind: mutate.OpRemoveListItem, List: "legislation", Index: mutate.At(0)})
	if !reflect.DeepEqual(v.Report, start) {
		t.Fatal("append then remove should restore the report")
	}

	v, ok := f.c.Undo(context.Background())
	if !ok || len(v.Report.Legislation) != 1 {
		t.Fatalf("undo should bring back the appended item, got %+v", v.Report.Legislation)
	}
	v, _ = f.c.Undo(context.Background())
	if len(v.Report.Legislation) != 0 || v.CanUndo {
		t.Fatal("second undo should reach the start")
	}
	if _, ok := f.c.Undo(context.Background()); ok {
		t.Fatal("nothing left to undo")
	}
}
// #endregion edit-tests

// #region lifecycle-tests
func TestController_RestoresDraft(t *testing.T) {
	store := draft.NewMemoryStore()
	store.Save(context.Background(), []byte(`{"general_info":{"full_name":"Сидоров"}}`))
	logger, _ := test.NewNullLogger()

	c := New(context.Background(), Deps{Draft: draft.NewAdapter(store, logger), Logger: logger})
	v := c.View()
	if v.Report.GeneralInfo.FullName != "Сидоров" {
		t.Fatal("draft should be restored at startup")
	}
	if len(v.Report.CitizenRequests.Requests) != len(report.Topics) {
		t.Fatal("restored draft should be merged over the default")
	}
}

func TestController_Reset(t *testing.T) {
	f := newFixture(t)
	f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "general_info", Field: "full_name", Value: "Петров"})
	f.c.Submit(context.Background())

	v := f.c.Reset(context.Background())
	if !reflect.DeepEqual(v.Report, report.Default()) {
		t.Fatal("reset should restore the default report")
	}
	if v.Attempted || !v.Errors.Empty() || v.CanUndo {
		t.Fatalf("reset should clear latch, errors and history, got %+v", v)
	}
	if _, err := f.store.Load(context.Background()); !errors.Is(err, draft.ErrNoDraft) {
		t.Fatal("reset should clear the draft")
	}
	if n := lastNotice(f.board); n.Message != MsgReset || n.Kind != notice.Success {
		t.Errorf("last notice = %+v", n)
	}
}

func TestController_Import(t *testing.T) {
	f := newFixture(t)
	v, err := f.c.Import(context.Background(), []byte(`{"general_info":{"full_name":"Кузнецов"},"citizen_requests":{"requests":{"svo":"3"}}}`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if v.Report.GeneralInfo.FullName != "Кузнецов" || v.Report.CitizenRequests.Requests["svo"] != "3" {
		t.Fatalf("import not applied: %+v", v.Report.GeneralInfo)
	}
	if v.Report.CitizenRequests.Requests["utilities"] != "" {
		t.Fatal("missing topics should be backfilled")
	}
	if lastNotice(f.board).Message != MsgImported {
		t.Errorf("expected import notice")
	}

	before := f.c.View().Report
	if _, err := f.c.Import(context.Background(), []byte(`not json`)); err == nil {
		t.Fatal("expected parse error")
	}
	if !reflect.DeepEqual(f.c.View().Report, before) {
		t.Fatal("failed import must keep the report")
	}
	if n := lastNotice(f.board); n.Kind != notice.Error || n.Message != MsgImportFailed {
		t.Errorf("last notice = %+v", n)
	}
}

func TestController_Exports(t *testing.T) {
	f := newFixture(t)
	f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "general_info", Field: "full_name", Value: "Петров Пётр"})

	file, err := f.c.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if file.Name != "ldpr_report_петров_пётр_2026-04-01.json" {
		t.Errorf("name = %s", file.Name)
	}
	var exported report.Report
	if err := json.Unmarshal(file.Data, &exported); err != nil || exported.CitizenRequests.Responses != "0" {
		t.Fatalf("export should be the normalized report: %v", err)
	}
	if f.c.View().Report.CitizenRequests.Responses != "" {
		t.Fatal("export must not normalize the working report")
	}

	xlsx, err := f.c.ExportXLSX()
	if err != nil || len(xlsx.Data) == 0 || xlsx.Name != "ldpr_report_петров_пётр_2026-04-01.xlsx" {
		t.Fatalf("ExportXLSX = %s, %v", xlsx.Name, err)
	}
}
// #endregion lifecycle-tests

// #region submit-tests
func TestController_SubmitLatchesRequired(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.Submit(context.Background())
	var fail *submit.Failure
	if !errors.As(err, &fail) || fail.Message != submit.MsgInvalidForm {
		t.Fatalf("expected validation failure, got %v", err)
	}
	v := f.c.View()
	if !v.Attempted || !v.Errors.Has("general_info.full_name") {
		t.Fatal("submit attempt should latch required-field errors")
	}
	if v.Submitting {
		t.Fatal("submit should be re-enabled")
	}
	if n := lastNotice(f.board); n.Message != submit.MsgInvalidForm {
		t.Errorf("last notice = %+v", n)
	}
	if len(f.bodies) != 0 {
		t.Fatal("invalid form must not be sent")
	}

	f.apply(t, mutate.Op{Kind: mutate.OpSetField, Section: "general_info", Field: "full_name", Value: "Иванов"})
	if f.c.View().Errors.Has("general_info.full_name") {
		t.Fatal("fixing a field should clear its error")
	}
}

func TestController_SubmitFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	f.fill(t)
	f.status = http.StatusInternalServerError
	before := f.c.View().Report

	if _, err := f.c.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if n := lastNotice(f.board); n.Kind != notice.Error || n.Message != "Ошибка сервера: 500" {
		t.Errorf("last notice = %+v", n)
	}
	if !reflect.DeepEqual(f.c.View().Report, before) || f.c.Submitting() {
		t.Fatal("report unchanged and submit re-enabled after failure")
	}

	f.mu.Lock()
	f.status = http.StatusOK
	f.mu.Unlock()
	res, err := f.c.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !bytes.Equal(f.bodies[0], f.bodies[1]) || !bytes.Equal(res.Payload, f.bodies[1]) {
		t.Fatal("retry payload must be byte-identical")
	}
	if lastNotice(f.board).Message != submit.MsgSucceeded {
		t.Errorf("expected success notice")
	}
}

func TestController_SubmitWithoutPipeline(t *testing.T) {
	c := New(context.Background(), Deps{})
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrNoPipeline) {
		t.Fatalf("expected ErrNoPipeline, got %v", err)
	}
}
// #endregion submit-tests
