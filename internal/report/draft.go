package report

import (
	"encoding/base64"
	"strings"
)

// Category is one of the fixed report categories.
type Category string

const (
	CategoryEmergency   Category = "Hitna pomoć/Sigurnost"
	CategoryTechnical   Category = "Prijava tehničkog problema"
	CategoryImprovement Category = "Prijedlog za unapređenje"
	CategoryGeneral     Category = "Opća prijava/Upit"
)

// Categories lists the categories in display order.
var Categories = []Category{
	CategoryEmergency,
	CategoryTechnical,
	CategoryImprovement,
	CategoryGeneral,
}

// ParseCategory returns the category named s, if it is one of Categories.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// CategoryNames returns Categories as plain strings.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}

// Image is a photo attached to a report.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Base64 returns the image bytes in standard base64.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Suggestion is a proposed category with a short explanation.
type Suggestion struct {
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
}

// Draft is a report being composed.
type Draft struct {
	description string
	category    Category
	image       *Image
}

func (d *Draft) Description() string {
	return d.description
}

func (d *Draft) Category() Category {
	return d.category
}

func (d *Draft) Image() *Image {
	return d.image
}

func (d *Draft) SetDescription(s string) {
	d.description = s
}

func (d *Draft) SetCategory(c Category) {
	d.category = c
}

func (d *Draft) SetImage(img *Image) {
	d.image = img
}

// CanSubmit requires a category and either a description or an image.
func (d *Draft) CanSubmit() bool {
	if d.category == "" {
		return false
	}
	return strings.TrimSpace(d.description) != "" || d.image != nil
}
