package testsupport

import (
	"context"
	"testing"
	"time"

	"lawfeed/internal/config"
	"lawfeed/internal/feed"
	"lawfeed/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// StageDocument stages an incoming UTF-8 document with the given body.
func StageDocument(t testing.TB, st *store.Store, name string, publishedAt time.Time, text string) *feed.Document {
	t.Helper()

	doc := &feed.Document{
		Name:        name,
		PublishedAt: publishedAt,
		Encoding:    "UTF-8",
		Text:        text,
	}
	if err := st.StageDocument(context.Background(), doc); err != nil {
		t.Fatalf("store.StageDocument: %v", err)
	}
	return doc
}

// SaveFragment stages a parent document if needed and stores a pending fragment.
func SaveFragment(t testing.TB, st *store.Store, docName string, publishedAt time.Time, fragmentType feed.FragmentType, seq int, text string) *feed.Fragment {
	t.Helper()

	ctx := context.Background()
	doc, err := st.DocumentByName(ctx, docName)
	if err != nil {
		doc = StageDocument(t, st, docName, publishedAt, "")
	}
	fragment := feed.NewFragment(doc, fragmentType, text, seq)
	fragment.PendingProcessing = true
	if err := st.SaveFragment(ctx, &fragment); err != nil {
		t.Fatalf("store.SaveFragment: %v", err)
	}
	return &fragment
}
