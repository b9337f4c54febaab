package types

import "time"

// BusinessContact holds contact details mined from a business website.
type BusinessContact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// BusinessProfile is the structured result of analyzing a business URL.
// When the site blocks scraping the analyzer produces a degraded profile
// derived from the URL string alone, flagged by Degraded and a low
// confidence score.
type BusinessProfile struct {
	URL          string `json:"url"`
	BusinessName string `json:"business_name"`
	Industry     string `json:"industry"`
	Description  string `json:"description,omitempty"`

	Keywords         []string `json:"keywords,omitempty"`
	ProductsServices []string `json:"products_services,omitempty"`
	Differentiators  []string `json:"differentiators,omitempty"`

	Contact BusinessContact `json:"contact,omitempty"`

	// Confidence is 0-1; degraded fallback profiles score well below the
	// confidence of a full scrape.
	Confidence float64 `json:"confidence"`
	Degraded   bool    `json:"degraded,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}
