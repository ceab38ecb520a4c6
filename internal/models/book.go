package models

import "time"

const (
	SourceManual = "manual"
	SourceGoogle = "google"
)

// Book represents a catalog record, either published by a user or ingested from Google Books.
type Book struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Title         string    `json:"title" gorm:"index;not null"`
	Author        string    `json:"author" gorm:"index"`
	Price         float64   `json:"price" gorm:"default:0"`
	Description   string    `json:"description,omitempty"`
	OwnerID       *uint     `json:"owner_id,omitempty" gorm:"index"`
	SellerID      *uint     `json:"seller_id,omitempty" gorm:"index"`
	GoogleID      *string   `json:"google_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	Source        string    `json:"source" gorm:"type:varchar(16);default:manual"`
	PublishedDate string    `json:"published_date,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	Owner  *User `json:"-" gorm:"foreignKey:OwnerID"`
	Seller *User `json:"-" gorm:"foreignKey:SellerID"`
}

// ExternalBook is a normalized Google Books volume, in flight between the catalog client and an ingestion job.
type ExternalBook struct {
	GoogleID      string   `json:"google_id,omitempty"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"published_date"`
	PageCount     int      `json:"page_count"`
}

// Placeholders for fields the upstream catalog omits.
const (
	UnknownAuthor = "Unknown"
	UntitledBook  = "No Title"
)

// WithDefaults fills missing title and authors with placeholders. Other fields already default to zero values.
func (b ExternalBook) WithDefaults() ExternalBook {
	if b.Title == "" {
		b.Title = UntitledBook
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{UnknownAuthor}
	}
	return b
}
