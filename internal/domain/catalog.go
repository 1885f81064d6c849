package domain

// Service is a bookable item of the catalog. Key is the stable token value
// exchanged with the transport; Name is what users see and what is stored
// on reservations.
type Service struct {
	Key  string `yaml:"key"  json:"key"`
	Name string `yaml:"name" json:"name"`
}

// Catalog is the ordered, fixed list of services offered.
type Catalog []Service

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		{Key: "manicure", Name: "Manicure"},
		{Key: "file_manicure", Name: "File manicure"},
		{Key: "complex", Name: "Complex (manicure + gel polish)"},
	}
}

// HasName reports whether a service with the display name exists.
func (c Catalog) HasName(name string) bool {
	for _, s := range c {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Lookup returns the service with the given key.
func (c Catalog) Lookup(key string) (Service, bool) {
	for _, s := range c {
		if s.Key == key {
			return s, true
		}
	}
	return Service{}, false
}
