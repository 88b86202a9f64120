// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StoreConfig locates the canonical collection document.
type StoreConfig struct {
	// Path is the collection JSON document (e.g. "data/fortune-knowledge.json").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// BackupPath is the sibling backup document. Empty derives
	// "<stem>-backup.json" next to Path.
	BackupPath string `json:"backup_path" yaml:"backup_path" mapstructure:"backup_path"`

	// Indent is the number of spaces used when writing the document (default 4).
	Indent int `json:"indent" yaml:"indent" mapstructure:"indent"`
}

// ExtractConfig holds settings for page text extraction and its fallbacks.
type ExtractConfig struct {
	// MaxPages bounds extraction to the first K pages. Zero means all pages.
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`

	// DPI is the rasterization resolution (default 200).
	DPI int `json:"dpi" yaml:"dpi" mapstructure:"dpi"`

	// OCRLanguage is the OCR script/language identifier (default "jpn").
	OCRLanguage string `json:"ocr_language" yaml:"ocr_language" mapstructure:"ocr_language"`

	// EnableOCR turns on the rasterize-then-OCR fallback.
	EnableOCR bool `json:"enable_ocr" yaml:"enable_ocr" mapstructure:"enable_ocr"`

	// SaveImages turns on the rasterize-then-store fallback.
	SaveImages bool `json:"save_images" yaml:"save_images" mapstructure:"save_images"`

	// ImagesDir receives page images written by the rasterize-then-store fallback.
	ImagesDir string `json:"images_dir" yaml:"images_dir" mapstructure:"images_dir"`
}

// ParseConfig holds settings for the entity parser.
type ParseConfig struct {
	// ContextLines is the number of lines captured before and after a
	// match as auxiliary context. Zero disables context capture.
	ContextLines int `json:"context_lines" yaml:"context_lines" mapstructure:"context_lines"`

	// EnforceRange rejects numbers outside the accepted range.
	EnforceRange bool `json:"enforce_range" yaml:"enforce_range" mapstructure:"enforce_range"`
}

// TablesConfig points at the static data tables. Empty paths use the
// embedded defaults.
type TablesConfig struct {
	Symbols   string `json:"symbols" yaml:"symbols" mapstructure:"symbols"`
	Taxonomy  string `json:"taxonomy" yaml:"taxonomy" mapstructure:"taxonomy"`
	PageIndex string `json:"page_index" yaml:"page_index" mapstructure:"page_index"`
}

// IndexConfig holds settings for the SQLite search mirror.
type IndexConfig struct {
	// DBPath is the SQLite database file (default "data/index/yijing.db").
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// Config groups all settings for a yijing-kb run.
type Config struct {
	Store    StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Extract  ExtractConfig `json:"extract" yaml:"extract" mapstructure:"extract"`
	Parse    ParseConfig   `json:"parse" yaml:"parse" mapstructure:"parse"`
	Tables   TablesConfig  `json:"tables" yaml:"tables" mapstructure:"tables"`
	Index    IndexConfig   `json:"index" yaml:"index" mapstructure:"index"`
	LogLevel string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	// LogFormat is "auto", "text" or "json".
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Path:   "data/fortune-knowledge.json",
			Indent: 4,
		},
		Extract: ExtractConfig{
			DPI:         200,
			OCRLanguage: "jpn",
			ImagesDir:   "data/pdf_images",
		},
		Parse: ParseConfig{
			ContextLines: 3,
			EnforceRange: true,
		},
		Index: IndexConfig{
			DBPath:     "data/index/yijing.db",
			MaxResults: 20,
		},
		LogLevel:  "info",
		LogFormat: "auto",
	}
}
