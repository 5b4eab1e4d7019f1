package schema

// CatalogVolumeTable represents the 'volume' table
type CatalogVolumeTable struct {
	Table        string
	ID           string
	SeriesID     string
	PublisherID  string
	Region       string
	VolumeNumber string
	Variant      string
	ReleaseDate  string
	ISBN         string
	CreatedAt    string
	UpdatedAt    string
}

// CatalogVolume is the schema definition for volume
var CatalogVolume = CatalogVolumeTable{
	Table:        "volume",
	ID:           "id",
	SeriesID:     "series_id",
	PublisherID:  "publisher_id",
	Region:       "region",
	VolumeNumber: "volume_number",
	Variant:      "variant",
	ReleaseDate:  "release_date",
	ISBN:         "isbn",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
}

func (t CatalogVolumeTable) Columns() []string {
	return []string{
		t.ID, t.SeriesID, t.PublisherID, t.Region, t.VolumeNumber, t.Variant,
		t.ReleaseDate, t.ISBN, t.CreatedAt, t.UpdatedAt,
	}
}
