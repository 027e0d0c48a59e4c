package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/prometna/internal/model"
)

type ContentStore struct {
	db *sql.DB
}

func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

// ListCalendarEvents returns the school calendar in display order.
func (s *ContentStore) ListCalendarEvents() ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, month, day, title, description FROM calendar_events ORDER BY sort_order, month, day, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		var e model.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Month, &e.Day, &e.Title, &e.Description); err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *ContentStore) ListDocuments() ([]model.Document, error) {
	rows, err := s.db.Query(`SELECT id, name, url FROM documents ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.URL); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// AddCalendarEvent appends an event after the existing ones.
func (s *ContentStore) AddCalendarEvent(month, day int, title, description string) (*model.CalendarEvent, error) {
	result, err := s.db.Exec(
		`INSERT INTO calendar_events (month, day, title, description, sort_order)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM calendar_events))`,
		month, day, title, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.CalendarEvent{ID: id, Month: month, Day: day, Title: title, Description: description}, nil
}
