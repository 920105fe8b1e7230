package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"campus-notice-bot/internal/scraper"
)

// LoadSelectors loads a source's selectors from a YAML file.
func LoadSelectors(filePath string) (*scraper.Selectors, error) {
	if filePath == "" {
		return nil, fmt.Errorf("selectors file path is empty")
	}

	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("selectors file not found: %s: %w", filePath, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open selectors file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close selectors file: %v\n", closeErr)
		}
	}()

	var selectors scraper.Selectors
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&selectors); err != nil {
		return nil, fmt.Errorf("failed to parse selectors YAML: %w", err)
	}

	if err := validateSelectors(&selectors); err != nil {
		return nil, err
	}

	return &selectors, nil
}

// LoadSelectorsForSource resolves the selectors file path of a source
// relative to the configs directory and loads it.
func (c *Config) LoadSelectorsForSource(src SourceConfig) (*scraper.Selectors, error) {
	filePath := src.SelectorsFile
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join("configs", filePath)
	}
	return LoadSelectors(filePath)
}

// validateSelectors checks the minimal selector set for a listing page.
func validateSelectors(s *scraper.Selectors) error {
	if s.ItemSelector == "" {
		return fmt.Errorf("item_selector is required")
	}
	if len(s.TitleSelectors) == 0 {
		return fmt.Errorf("title_selectors is required")
	}
	if len(s.LinkSelectors) == 0 {
		return fmt.Errorf("link_selectors is required")
	}
	return nil
}
