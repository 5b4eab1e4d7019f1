package schema

// CatalogSeriesTable represents the 'series' table
type CatalogSeriesTable struct {
	Table              string
	ID                 string
	TitleJP            string
	TitleTW            string
	AuthorJP           string
	AuthorTW           string
	StatusJP           string
	Genres             string
	FirstPublishedYear string
	LatestVolumeJPID   string
	LatestVolumeTWID   string
	CreatedAt          string
	UpdatedAt          string
}

// CatalogSeries is the schema definition for series
var CatalogSeries = CatalogSeriesTable{
	Table:              "series",
	ID:                 "id",
	TitleJP:            "title_jp",
	TitleTW:            "title_tw",
	AuthorJP:           "author_jp",
	AuthorTW:           "author_tw",
	StatusJP:           "status_jp",
	Genres:             "genres",
	FirstPublishedYear: "first_published_year",
	LatestVolumeJPID:   "latest_volume_jp_id",
	LatestVolumeTWID:   "latest_volume_tw_id",
	CreatedAt:          "created_at",
	UpdatedAt:          "updated_at",
}

func (t CatalogSeriesTable) Columns() []string {
	return []string{
		t.ID, t.TitleJP, t.TitleTW, t.AuthorJP, t.AuthorTW, t.StatusJP, t.Genres,
		t.FirstPublishedYear, t.LatestVolumeJPID, t.LatestVolumeTWID, t.CreatedAt, t.UpdatedAt,
	}
}
