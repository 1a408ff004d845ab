package domain

// Section is a named, ordered subdivision of a paper (e.g. "Results").
// Matches the JSON schema of stored PMC articles:
//
//	{"title": "Results", "order": 0, "text": "full section text..."}
type Section struct {
	Title string `json:"title"`
	Order int    `json:"order"`
	Text  string `json:"text"`
}

// Paper is a scraped PMC article with its sections in reading order.
type Paper struct {
	DocID     string    `json:"doc_id"`
	DocTitle  string    `json:"doc_title"`
	SourceURL string    `json:"source_url"`
	CreatedAt string    `json:"created_at"`
	Sections  []Section `json:"sections"`
}
