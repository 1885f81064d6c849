package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

type catalogFile struct {
	Services []domain.Service `yaml:"services"`
}

// LoadCatalog reads the service catalog from a YAML file of the form
//
//	services:
//	  - key: manicure
//	    name: Manicure
//
// An empty path returns domain.DefaultCatalog.
func LoadCatalog(path string) (domain.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Services) == 0 {
		return nil, errors.New("catalog has no services")
	}
	seen := make(map[string]bool, len(f.Services))
	out := make(domain.Catalog, 0, len(f.Services))
	for _, s := range f.Services {
		s.Key = strings.TrimSpace(s.Key)
		s.Name = strings.TrimSpace(s.Name)
		if s.Key == "" || s.Name == "" {
			return nil, errors.New("catalog entries need a key and a name")
		}
		if strings.Contains(s.Key, ":") || len(s.Key) > 32 {
			return nil, fmt.Errorf("catalog key %q must be at most 32 characters without ':'", s.Key)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("duplicate catalog key %q", s.Key)
		}
		seen[s.Key] = true
		out = append(out, s)
	}
	return out, nil
}
