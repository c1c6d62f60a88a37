package model

import "golang.org/x/text/language"

// ImageRef is a single image search hit. Link is its identity.
type ImageRef struct {
	Link  string `json:"link" yaml:"link"`
	Title string `json:"title" yaml:"title"`
}

// QueryRecord is the persisted accumulation of image searches for one query
// term. Images never contain two entries with the same Link and keep
// first-seen order.
type QueryRecord struct {
	Count  int        `json:"count" yaml:"count"`
	Images []ImageRef `json:"images" yaml:"images"`
}

// Language is one entry of the multilingual search table.
type Language struct {
	Tag    language.Tag
	Label  string
	Phrase string
}

// Code returns the BCP 47 code of the language, e.g. "en".
func (l Language) Code() string {
	return l.Tag.String()
}

// LanguageImage is the top image found for a language variant.
type LanguageImage struct {
	Link      string  `json:"link"`
	Title     string  `json:"title"`
	Thumbnail *string `json:"thumbnail"`
}

// LanguageResult is the outcome of one language variant search. Image is
// nil when the search failed or returned nothing.
type LanguageResult struct {
	Language     string         `json:"language"`
	LanguageCode string         `json:"languageCode"`
	Query        string         `json:"query"`
	Image        *LanguageImage `json:"image"`
}
