package model

// NoInformation is the marker note set when LinkedIn lookup found neither
// a company page nor any contact.
const NoInformation = "no information found"

// Contact is a person parsed from a LinkedIn profile search hit.
type Contact struct {
	FullName  string `json:"full_name"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	SourceURL string `json:"source_url"`
}

// LinkedInResult is the output of the LinkedIn stage.
type LinkedInResult struct {
	LinkedInURL      string         `json:"linkedin_url"`
	CompanySize      string         `json:"company_size"`
	Industry         string         `json:"industry"`
	Location         string         `json:"location"`
	Contacts         []Contact      `json:"contacts"`
	RawSearchResults []SearchResult `json:"raw_search_results"`
	NoInformation    bool           `json:"no_information"`
	Note             string         `json:"note,omitempty"`
	DurationMs       int64          `json:"duration_ms"`
}
