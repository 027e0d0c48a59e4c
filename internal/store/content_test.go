package store

import (
	"testing"

	"github.com/dukerupert/prometna/internal/database"
)

func setupContentTestDB(t *testing.T) *ContentStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewContentStore(db)
}

func TestListCalendarEvents(t *testing.T) {
	cs := setupContentTestDB(t)

	events, err := cs.ListCalendarEvents()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	if got := events[0].DateLabel(); got != "21.06." {
		t.Errorf("first event date = %q, want 21.06.", got)
	}
	if got := events[4].DateLabel(); got != "02.09." {
		t.Errorf("last event date = %q, want 02.09.", got)
	}
}

func TestAddCalendarEventAppends(t *testing.T) {
	cs := setupContentTestDB(t)

	added, err := cs.AddCalendarEvent(12, 23, "Početak zimskih praznika", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID == 0 {
		t.Error("expected non-zero ID")
	}

	events, _ := cs.ListCalendarEvents()
	last := events[len(events)-1]
	if last.Title != "Početak zimskih praznika" {
		t.Errorf("last title = %q", last.Title)
	}
}

func TestListDocuments(t *testing.T) {
	cs := setupContentTestDB(t)

	docs, err := cs.ListDocuments()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 6 {
		t.Fatalf("got %d documents, want 6", len(docs))
	}
	for _, d := range docs {
		if d.Name == "" || d.URL == "" {
			t.Errorf("incomplete document: %+v", d)
		}
	}
}
