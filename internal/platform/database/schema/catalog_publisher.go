package schema

// CatalogPublisherTable represents the 'publisher' table
type CatalogPublisherTable struct {
	Table     string
	ID        string
	Name      string
	Region    string
	CreatedAt string
}

// CatalogPublisher is the schema definition for publisher
var CatalogPublisher = CatalogPublisherTable{
	Table:     "publisher",
	ID:        "id",
	Name:      "name",
	Region:    "region",
	CreatedAt: "created_at",
}

func (t CatalogPublisherTable) Columns() []string {
	return []string{t.ID, t.Name, t.Region}
}
