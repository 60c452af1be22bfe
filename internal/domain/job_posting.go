package domain

const (
	JobStatusDraft     = "draft"
	JobStatusPublished = "published"
	JobStatusClosed    = "closed"
	JobStatusArchived  = "archived"
)

type JobPosting struct {
	ID       ID     `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	City     string `json:"city"`
	Status   string `json:"status"`
	Code     string `json:"code"`
	// CreatedAt is kept as sent; the upstream does not use one date format.
	CreatedAt string `json:"createdAt,omitempty"`
}
