package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"lawfeed/internal/feed"
	"lawfeed/internal/store"
	"lawfeed/internal/testsupport"
)

func TestStageAndFetchDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	published := time.Date(2013, 1, 10, 14, 30, 0, 0, time.UTC)
	testsupport.StageDocument(t, st, "SOBI.D130110.T143000.TXT", published, "body")

	doc, err := st.DocumentByName(ctx, "SOBI.D130110.T143000.TXT")
	if err != nil {
		t.Fatalf("DocumentByName failed: %v", err)
	}
	if doc.State != feed.DocumentIncoming || doc.Text != "body" || !doc.PublishedAt.Equal(published) {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.StagedAt.IsZero() || doc.CollatedAt != nil || doc.ArchivedAt != nil {
		t.Fatalf("unexpected timestamps: %+v", doc)
	}

	dup := &feed.Document{Name: doc.Name, PublishedAt: published, Encoding: "UTF-8"}
	if err := st.StageDocument(ctx, dup); !errors.Is(err, store.ErrDocumentExists) {
		t.Fatalf("expected ErrDocumentExists, got %v", err)
	}

	if _, err := st.DocumentByName(ctx, "missing"); !errors.Is(err, store.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestIncomingDocumentsOrderAndArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2013, 1, 10, 0, 0, 0, 0, time.UTC)
	testsupport.StageDocument(t, st, "c", base.Add(2*time.Hour), "")
	testsupport.StageDocument(t, st, "a", base, "")
	testsupport.StageDocument(t, st, "b", base.Add(time.Hour), "")

	docs, err := st.IncomingDocuments(ctx, feed.Ascending, 2)
	if err != nil {
		t.Fatalf("IncomingDocuments failed: %v", err)
	}
	if len(docs) != 2 || docs[0].Name != "a" || docs[1].Name != "b" {
		t.Fatalf("unexpected first page: %v", documentNames(docs))
	}

	if err := st.ArchiveDocument(ctx, docs[0]); err != nil {
		t.Fatalf("ArchiveDocument failed: %v", err)
	}
	if !docs[0].Archived() || docs[0].ArchivedAt == nil {
		t.Fatalf("expected document to be marked archived: %+v", docs[0])
	}

	docs, err = st.IncomingDocuments(ctx, feed.Descending, 0)
	if err != nil {
		t.Fatalf("IncomingDocuments failed: %v", err)
	}
	if got := documentNames(docs); len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Fatalf("unexpected descending page: %v", got)
	}

	missing := &feed.Document{Name: "missing"}
	if err := st.ArchiveDocument(ctx, missing); !errors.Is(err, store.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestSaveDocumentPersistsCollationTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.StageDocument(t, st, "doc", time.Now(), "")
	collated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	doc.CollatedAt = &collated
	if err := st.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	fetched, err := st.DocumentByName(ctx, "doc")
	if err != nil {
		t.Fatalf("DocumentByName failed: %v", err)
	}
	if fetched.CollatedAt == nil || !fetched.CollatedAt.Equal(collated) {
		t.Fatalf("collated_at not persisted: %+v", fetched.CollatedAt)
	}
}

func TestSaveFragmentUpsertsAndPendingOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	early := time.Date(2013, 1, 10, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	testsupport.SaveFragment(t, st, "late", late, feed.TypeCalendar, 1, "<c/>")
	testsupport.SaveFragment(t, st, "early", early, feed.TypeCommittee, 2, "<m/>")
	testsupport.SaveFragment(t, st, "early", early, feed.TypeBill, 0, "bill")
	first := testsupport.SaveFragment(t, st, "early", early, feed.TypeCalendar, 1, "<c/>")

	pending, err := st.PendingFragments(ctx, feed.Ascending, 0)
	if err != nil {
		t.Fatalf("PendingFragments failed: %v", err)
	}
	want := []string{"early-0-BILL", "early-1-CALENDAR", "early-2-COMMITTEE", "late-1-CALENDAR"}
	if got := fragmentIDs(pending); !equalStrings(got, want) {
		t.Fatalf("unexpected pending order: got %v want %v", got, want)
	}

	stagedAt := pending[1].StagedAt
	first.Text = "<c>updated</c>"
	first.MarkProcessed(time.Now())
	if err := st.SaveFragment(ctx, first); err != nil {
		t.Fatalf("SaveFragment update failed: %v", err)
	}
	fetched, err := st.FragmentByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("FragmentByID failed: %v", err)
	}
	if fetched.PendingProcessing || fetched.ProcessedCount != 1 || fetched.ProcessedAt == nil {
		t.Fatalf("dispatch state not persisted: %+v", fetched)
	}
	if fetched.Text != "<c>updated</c>" {
		t.Fatalf("text not updated: %q", fetched.Text)
	}
	if !fetched.StagedAt.Equal(stagedAt) {
		t.Fatalf("staged_at changed on upsert: %v vs %v", fetched.StagedAt, stagedAt)
	}

	pending, err = st.PendingFragments(ctx, feed.Ascending, 2)
	if err != nil {
		t.Fatalf("PendingFragments failed: %v", err)
	}
	if got := fragmentIDs(pending); !equalStrings(got, []string{"early-0-BILL", "early-2-COMMITTEE"}) {
		t.Fatalf("unexpected pending after update: %v", got)
	}

	if _, err := st.FragmentByID(ctx, "nope"); !errors.Is(err, store.ErrFragmentNotFound) {
		t.Fatalf("expected ErrFragmentNotFound, got %v", err)
	}
}

func TestListFragmentsAndDocumentFragments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	now := time.Date(2013, 1, 10, 0, 0, 0, 0, time.UTC)
	testsupport.SaveFragment(t, st, "doc", now, feed.TypeCalendar, 2, "x")
	testsupport.SaveFragment(t, st, "doc", now, feed.TypeBill, 0, "y")
	done := testsupport.SaveFragment(t, st, "doc", now, feed.TypeCommittee, 1, "z")
	done.MarkProcessed(now)
	if err := st.SaveFragment(ctx, done); err != nil {
		t.Fatalf("SaveFragment failed: %v", err)
	}

	all, err := st.FragmentsForDocument(ctx, "doc")
	if err != nil {
		t.Fatalf("FragmentsForDocument failed: %v", err)
	}
	if got := fragmentIDs(all); !equalStrings(got, []string{"doc-0-BILL", "doc-1-COMMITTEE", "doc-2-CALENDAR"}) {
		t.Fatalf("unexpected document fragments: %v", got)
	}

	pendingCalendars, err := st.ListFragments(ctx, store.FragmentFilter{
		Types:       []feed.FragmentType{feed.TypeCalendar, feed.TypeCommittee},
		PendingOnly: true,
	})
	if err != nil {
		t.Fatalf("ListFragments failed: %v", err)
	}
	if got := fragmentIDs(pendingCalendars); !equalStrings(got, []string{"doc-2-CALENDAR"}) {
		t.Fatalf("unexpected filtered fragments: %v", got)
	}
}

func TestStatsAndAnomalies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	now := time.Date(2013, 1, 10, 0, 0, 0, 0, time.UTC)
	empty := testsupport.StageDocument(t, st, "empty", now, "noise")
	if err := st.ArchiveDocument(ctx, empty); err != nil {
		t.Fatalf("ArchiveDocument failed: %v", err)
	}
	testsupport.StageDocument(t, st, "waiting", now, "")
	fragment := testsupport.SaveFragment(t, st, "busy", now, feed.TypeCalendar, 1, "x")
	busy, err := st.DocumentByName(ctx, "busy")
	if err != nil {
		t.Fatalf("DocumentByName failed: %v", err)
	}
	if err := st.ArchiveDocument(ctx, busy); err != nil {
		t.Fatalf("ArchiveDocument failed: %v", err)
	}
	if err := st.RecordChange(ctx, &store.RecordChange{FragmentID: fragment.ID, Kind: "calendar", Key: "2013-1"}); err != nil {
		t.Fatalf("RecordChange failed: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.IncomingDocuments != 1 || stats.ArchivedDocuments != 2 {
		t.Fatalf("unexpected document counts: %+v", stats)
	}
	if stats.PendingFragments != 1 || stats.ByType[feed.TypeCalendar].Pending != 1 || stats.RecordChanges != 1 {
		t.Fatalf("unexpected fragment counts: %+v", stats)
	}

	anomalies, err := st.ArchivedWithoutFragments(ctx)
	if err != nil {
		t.Fatalf("ArchivedWithoutFragments failed: %v", err)
	}
	if got := documentNames(anomalies); !equalStrings(got, []string{"empty"}) {
		t.Fatalf("unexpected anomalies: %v", got)
	}
}

func TestRecordChangesAssignSortableIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fragment := testsupport.SaveFragment(t, st, "doc", time.Now(), feed.TypeBill, 0, "bill")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"S1", "S2", "S3"} {
		change := &store.RecordChange{
			FragmentID: fragment.ID,
			Kind:       "bill",
			Key:        key,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := st.RecordChange(ctx, change); err != nil {
			t.Fatalf("RecordChange failed: %v", err)
		}
		if len(change.ID) != 26 {
			t.Fatalf("expected ULID id, got %q", change.ID)
		}
	}

	changes, err := st.RecordChanges(ctx, fragment.ID)
	if err != nil {
		t.Fatalf("RecordChanges failed: %v", err)
	}
	if len(changes) != 3 || changes[0].Key != "S1" || changes[2].Key != "S3" {
		t.Fatalf("unexpected changes: %+v", changes)
	}

	if err := st.RecordChange(ctx, &store.RecordChange{FragmentID: fragment.ID}); err == nil {
		t.Fatal("expected missing kind to fail")
	}
}

func TestSchemaReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)
	health, err := reopened.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestOpenRejectsForeignSchema(t *testing.T) {
	cases := map[string]string{
		"version":       "UPDATE schema_version SET version = 99",
		"missing table": "DROP TABLE record_changes",
	}
	for name, stmt := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			st := testsupport.MustOpenStore(t, cfg)
			path := st.Path()
			if err := st.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			db, err := sql.Open("sqlite", path)
			if err != nil {
				t.Fatalf("open raw db: %v", err)
			}
			if _, err := db.Exec(stmt); err != nil {
				t.Fatalf("exec %q: %v", stmt, err)
			}
			_ = db.Close()

			reopened, err := store.OpenPath(path)
			if err == nil {
				_ = reopened.Close()
				t.Fatal("expected reopen to fail")
			}
			if !errors.Is(err, store.ErrSchemaMismatch) {
				t.Fatalf("expected ErrSchemaMismatch, got %v", err)
			}
		})
	}
}

func documentNames(docs []*feed.Document) []string {
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc.Name)
	}
	return names
}

func fragmentIDs(fragments []*feed.Fragment) []string {
	ids := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		ids = append(ids, fragment.ID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
