package model

// StatusCompleted is the default Firecrawl status value.
const StatusCompleted = "completed"

// FirecrawlResponse is the Firecrawl-compatible crawl envelope.
type FirecrawlResponse struct {
	Success   bool                `json:"success"`
	Status    string              `json:"status"`
	Completed int                 `json:"completed"`
	Total     int                 `json:"total"`
	Data      []FirecrawlDocument `json:"data"`
}

// FirecrawlDocument is one entry of FirecrawlResponse.Data.
type FirecrawlDocument struct {
	Markdown string       `json:"markdown"`
	Metadata PageMetadata `json:"metadata"`
}
