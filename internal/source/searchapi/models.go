package searchapi

// APIResponse is one page of search results.
type APIResponse struct {
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
	Results    []Result `json:"results"`
}

type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
}
