package model

import "fmt"

type CalendarEvent struct {
	ID          int64  `json:"id"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DateLabel renders the event date the way the school calendar prints it, e.g. "21.06.".
func (e CalendarEvent) DateLabel() string {
	return fmt.Sprintf("%02d.%02d.", e.Day, e.Month)
}

type Document struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ContactInfo struct {
	Name    string `json:"name"`
	About   string `json:"about"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Web     string `json:"web"`
}
