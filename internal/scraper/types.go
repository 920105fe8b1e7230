package scraper

// Notice is one announcement scraped from a board listing. Transient:
// consumed by the pipeline immediately, never persisted.
type Notice struct {
	Title   string
	Link    string
	DateRaw string
	Source  string
}

// Selectors describe how to pull notices out of one board's listing page.
// Selector slices are tried in order, first non-empty result wins.
type Selectors struct {
	ListContainer  string   `yaml:"list_container"`
	ItemSelector   string   `yaml:"item_selector"`
	TitleSelectors []string `yaml:"title_selectors"`
	LinkSelectors  []string `yaml:"link_selectors"`
	DateSelectors  []string `yaml:"date_selectors"`
}
