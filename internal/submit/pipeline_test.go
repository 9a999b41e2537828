package submit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	_ "modernc.org/sqlite"

	"github.com/MrDragar/LDPR-reports-generator/internal/artifact"
	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
	"github.com/MrDragar/LDPR-reports-generator/internal/reportsvc"
)

// #region helpers
var fixedNow = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }

func validReport() report.Report {
	r := report.Default()
	r.GeneralInfo.FullName = "Иванов Иван"
	r.GeneralInfo.District = "Округ №1"
	r.GeneralInfo.Region = "Тверская область"
	r.GeneralInfo.AuthorityName = "Городская дума"
	r.GeneralInfo.TermStart = "01.09.2021"
	r.GeneralInfo.Position = "Депутат"
	r.GeneralInfo.SessionsAttended = report.SessionsAttended{
		Total: "10", Attended: "9", CommitteeTotal: "4", CommitteeAttended: "4", LdprTotal: "2", LdprAttended: "1",
	}
	return r
}

// fakeService is a report service backed by httptest. status controls the
// submit answer; every received body is kept.
type fakeService struct {
	srv    *httptest.Server
	mu     sync.Mutex
	status int
	bodies [][]byte
	block  chan struct{}
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.bodies = append(f.bodies, body)
			status, block := f.status, f.block
			f.mu.Unlock()
			if block != nil {
				<-block
			}
			if status != http.StatusOK {
				http.Error(w, "internal error", status)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"status": "Succes", "message": f.srv.URL + "/media/report.pdf"})
		case "/media/report.pdf":
			w.Write([]byte("%PDF-1.7"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) setStatus(code int) {
	f.mu.Lock()
	f.status = code
	f.mu.Unlock()
}

func newPipeline(t *testing.T, f *fakeService, db *sql.DB) (*Pipeline, string, *[]Stage) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	var mu sync.Mutex
	stages := &[]Stage{}
	p := New(Deps{
		Service:  reportsvc.New(reportsvc.Config{URL: f.srv.URL + "/", Timeout: 5 * time.Second}),
		Saver:    artifact.DirSaver{Dir: dir},
		Logger:   logger,
		Log:      db,
		Endpoint: f.srv.URL + "/",
		Prefix:   "ldpr_report",
		Now:      fixedNow,
		OnState: func(s Stage) {
			mu.Lock()
			*stages = append(*stages, s)
			mu.Unlock()
		},
	})
	return p, dir, stages
}

func memDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := logging.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
// #endregion helpers

// #region run-tests
func TestRun_Success(t *testing.T) {
	f := newFakeService(t)
	db := memDB(t)
	p, dir, stages := newPipeline(t, f, db)

	res, err := p.Run(context.Background(), validReport())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FileName != "ldpr_report_иванов_иван_2026-05-01.pdf" {
		t.Errorf("file name = %s", res.FileName)
	}
	got, err := os.ReadFile(filepath.Join(dir, res.FileName))
	if err != nil || string(got) != "%PDF-1.7" {
		t.Fatalf("saved file = %q, %v", got, err)
	}

	want := []Stage{StageValidating, StageSubmitting, StageAwaitingArtifact, StageDownloading, StageSucceeded, StageIdle}
	if !reflect.DeepEqual(*stages, want) {
		t.Errorf("stages = %v, want %v", *stages, want)
	}
	if p.State() != StageIdle {
		t.Errorf("pipeline should rest in idle, got %s", p.State())
	}

	var sent report.Report
	if err := json.Unmarshal(f.bodies[0], &sent); err != nil {
		t.Fatalf("payload is not a report: %v", err)
	}
	if sent.CitizenRequests.Responses != "0" {
		t.Error("payload must be normalized")
	}

	rows, _ := logging.ListSubmissions(context.Background(), db, 5)
	if len(rows) != 1 || rows[0].Outcome != logging.OutcomeSucceeded || rows[0].AttemptID != res.AttemptID {
		t.Errorf("submission log = %+v", rows)
	}
}

func TestRun_ValidationBlocksNetwork(t *testing.T) {
	f := newFakeService(t)
	db := memDB(t)
	p, _, _ := newPipeline(t, f, db)

	_, err := p.Run(context.Background(), report.Default())
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("expected Failure, got %v", err)
	}
	if fail.Stage != StageValidating || fail.Message != MsgInvalidForm {
		t.Errorf("unexpected failure %+v", fail)
	}
	if !fail.Errors.Has("general_info.full_name") {
		t.Error("failure should carry the field errors")
	}
	if len(f.bodies) != 0 {
		t.Fatal("nothing may be sent for an invalid report")
	}
	rows, _ := logging.ListSubmissions(context.Background(), db, 5)
	if len(rows) != 1 || rows[0].Outcome != logging.OutcomeRejected {
		t.Errorf("submission log = %+v", rows)
	}
}

// A 500 fails the run, leaves the report alone, frees the pipeline, and a
// retry sends exactly the same bytes.
func TestRun_ServerErrorThenRetry(t *testing.T) {
	f := newFakeService(t)
	f.setStatus(http.StatusInternalServerError)
	p, _, _ := newPipeline(t, f, nil)

	r := validReport()
	before := r.Clone()

	_, err := p.Run(context.Background(), r)
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("expected Failure, got %v", err)
	}
	if fail.Stage != StageSubmitting || fail.Message != "Ошибка сервера: 500" {
		t.Errorf("unexpected failure %+v", fail)
	}
	var se *reportsvc.StatusError
	if !errors.As(err, &se) || se.Code != 500 {
		t.Errorf("failure should wrap the status error, got %v", err)
	}
	if !reflect.DeepEqual(r, before) {
		t.Fatal("report must not change")
	}
	if p.State() != StageIdle {
		t.Fatalf("pipeline should be idle after a failure, got %s", p.State())
	}

	if _, err := p.Run(context.Background(), r); errors.Is(err, ErrBusy) {
		t.Fatal("guard must be released after a failure")
	}
	if len(f.bodies) != 2 || !bytes.Equal(f.bodies[0], f.bodies[1]) {
		t.Fatal("retry payload must be byte-identical")
	}
}

func TestRun_BadEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"Error","message":""}`)
	}))
	defer srv.Close()
	logger, _ := test.NewNullLogger()
	var stages []Stage
	p := New(Deps{
		Service:  reportsvc.New(reportsvc.Config{URL: srv.URL}),
		Saver:    artifact.DirSaver{Dir: t.TempDir()},
		Logger:   logger,
		Endpoint: srv.URL,
		OnState:  func(s Stage) { stages = append(stages, s) },
	})

	_, err := p.Run(context.Background(), validReport())
	var fail *Failure
	if !errors.As(err, &fail) || fail.Stage != StageAwaitingArtifact || fail.Message != MsgBadResponse {
		t.Fatalf("expected bad response failure, got %v", err)
	}
	want := []Stage{StageValidating, StageSubmitting, StageAwaitingArtifact, StageFailed, StageIdle}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestRun_FetchFailure(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"status": "Succes", "message": srv.URL + "/gone.pdf"})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	logger, _ := test.NewNullLogger()
	p := New(Deps{
		Service:  reportsvc.New(reportsvc.Config{URL: srv.URL}),
		Saver:    artifact.DirSaver{Dir: t.TempDir()},
		Logger:   logger,
		Endpoint: srv.URL,
	})

	res, err := p.Run(context.Background(), validReport())
	var fail *Failure
	if !errors.As(err, &fail) || fail.Stage != StageDownloading || fail.Message != "Не удалось загрузить PDF: 404" {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if res.Locator != srv.URL+"/gone.pdf" {
		t.Errorf("locator should be kept on the result, got %q", res.Locator)
	}
}

func TestRun_Busy(t *testing.T) {
	f := newFakeService(t)
	f.block = make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(f.block) }) }
	t.Cleanup(unblock)
	p, _, _ := newPipeline(t, f, nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), validReport())
		done <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for p.State() != StageSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("first run never reached submitting")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := p.Run(context.Background(), validReport()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	unblock()
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}
// #endregion run-tests

// #region guard-tests
func TestLocalGuard(t *testing.T) {
	var g LocalGuard
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := g.Acquire(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	release()
	if _, err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestRedisGuard(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	logger, hook := test.NewNullLogger()
	g := NewRedisGuard(redislock.New(rdb), "ldpr-report-draft-test", 10*time.Second, logger)

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := g.Acquire(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	release()
	if len(hook.AllEntries()) != 0 {
		t.Errorf("clean release should not log, got %v", hook.LastEntry().Message)
	}

	short := NewRedisGuard(redislock.New(rdb), "ldpr-report-draft-test-expiry", 50*time.Millisecond, logger)
	release, err = short.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	release()
	if e := hook.LastEntry(); e == nil || e.Message != "release submit lock" {
		t.Error("an expired lock should be logged on release")
	}
}
// #endregion guard-tests
