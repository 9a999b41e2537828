package draft

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

func tempStore(t *testing.T, keep int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "draft.db"), keep)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// #region sqlite-tests
func TestSQLite_EmptyLoad(t *testing.T) {
	s := tempStore(t, 0)
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft, got %v", err)
	}
}

func TestSQLite_SaveLoadChain(t *testing.T) {
	s := tempStore(t, 0)
	ctx := context.Background()

	for _, p := range []string{`{"other_info":"a"}`, `{"other_info":"b"}`} {
		if err := s.Save(ctx, []byte(p)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"other_info":"b"}` {
		t.Fatalf("Load = %s", got)
	}

	versions, err := s.ListVersions(ctx, 10)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].ParentID != versions[1].VersionID {
		t.Errorf("newest version should point at its predecessor")
	}
	if versions[1].ParentID != "" {
		t.Errorf("first version has no parent, got %q", versions[1].ParentID)
	}
	if !versions[0].Active || versions[1].Active {
		t.Errorf("only the newest version is active")
	}
}

func TestSQLite_Rollback(t *testing.T) {
	s := tempStore(t, 0)
	ctx := context.Background()

	s.Save(ctx, []byte(`{"other_info":"v1"}`))
	versions, _ := s.ListVersions(ctx, 1)
	v1 := versions[0].VersionID
	s.Save(ctx, []byte(`{"other_info":"v2"}`))

	if err := s.Rollback(ctx, v1); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	got, _ := s.Load(ctx)
	if string(got) != `{"other_info":"v1"}` {
		t.Fatalf("after rollback Load = %s", got)
	}

	s.Save(ctx, []byte(`{"other_info":"v3"}`))
	active, err := s.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ParentID != v1 {
		t.Errorf("save after rollback should branch from %s, got parent %s", v1, active.ParentID)
	}

	if err := s.Rollback(ctx, "nonexistent-id"); err == nil {
		t.Fatal("expected error for non-existent version")
	}
}

func TestSQLite_Retention(t *testing.T) {
	s := tempStore(t, 3)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if err := s.Save(ctx, []byte(`{}`)); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	versions, err := s.ListVersions(ctx, 100)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 retained versions, got %d", len(versions))
	}
	if !versions[0].Active {
		t.Error("newest version must survive pruning")
	}
}

func TestSQLite_Clear(t *testing.T) {
	s := tempStore(t, 0)
	ctx := context.Background()
	s.Save(ctx, []byte(`{}`))
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft after clear, got %v", err)
	}
	versions, _ := s.ListVersions(ctx, 10)
	if len(versions) != 0 {
		t.Fatalf("history should be gone, got %d versions", len(versions))
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	s.Save(ctx, []byte(`{"other_info":"kept"}`))
	s.Close()

	s, err = NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Load(ctx)
	if err != nil || string(got) != `{"other_info":"kept"}` {
		t.Fatalf("Load after reopen = %s, %v", got, err)
	}
}
// #endregion sqlite-tests

// #region adapter-tests
func TestAdapter_RoundTrip(t *testing.T) {
	logger, hook := test.NewNullLogger()
	a := NewAdapter(tempStore(t, 0), logger)
	ctx := context.Background()

	r, ok := a.Load(ctx)
	if ok || !reflect.DeepEqual(r, report.Default()) {
		t.Fatal("empty store should load the default report")
	}

	r.GeneralInfo.FullName = "Сидоров"
	r.Legislation = append(r.Legislation, report.NewLegislation())
	if err := a.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok := a.Load(ctx)
	if !ok {
		t.Fatal("expected a restored draft")
	}
	if !reflect.DeepEqual(got, r) {
		t.Fatalf("restored draft differs:\n got %+v\nwant %+v", got, r)
	}
	if len(hook.Entries) != 0 {
		t.Errorf("no errors expected, got %d log entries", len(hook.Entries))
	}
}

func TestAdapter_CorruptDraft(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := NewMemoryStore()
	store.Save(context.Background(), []byte(`{"general_info": [`))
	a := NewAdapter(store, logger)

	r, ok := a.Load(context.Background())
	if ok {
		t.Fatal("corrupt draft must not count as restored")
	}
	if !reflect.DeepEqual(r, report.Default()) {
		t.Fatal("corrupt draft should fall back to default")
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("expected one logged error, got %d", len(hook.Entries))
	}
}

func TestAdapter_StoreFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := NewMemoryStore()
	store.Fail = errors.New("quota exceeded")
	a := NewAdapter(store, logger)
	ctx := context.Background()

	if r, ok := a.Load(ctx); ok || !reflect.DeepEqual(r, report.Default()) {
		t.Fatal("unreadable store should fall back to default")
	}
	err := a.Save(ctx, report.Default())
	if err == nil || !errors.Is(err, store.Fail) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if len(hook.Entries) != 2 {
		t.Fatalf("expected two logged errors, got %d", len(hook.Entries))
	}
}

func TestAdapter_LegacyDraft(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "report", "testdata", "legacy_draft.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	logger, _ := test.NewNullLogger()
	store := NewMemoryStore()
	store.Save(context.Background(), data)

	r, ok := NewAdapter(store, logger).Load(context.Background())
	if !ok {
		t.Fatal("legacy draft should restore")
	}
	if len(r.CitizenRequests.Requests) != len(report.Topics) {
		t.Errorf("topics not backfilled: %d", len(r.CitizenRequests.Requests))
	}
}

func TestAdapter_Clear(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := NewMemoryStore()
	a := NewAdapter(store, logger)
	ctx := context.Background()
	a.Save(ctx, report.Default())
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("expected empty slot, got %v", err)
	}
}
// #endregion adapter-tests

// #region redis-tests
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, "ldpr-report-draft-test")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	defer s.Clear(ctx)

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft, got %v", err)
	}
	if err := s.Save(ctx, []byte(`{"other_info":"r"}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil || string(got) != `{"other_info":"r"}` {
		t.Fatalf("Load = %s, %v", got, err)
	}
}
// #endregion redis-tests
