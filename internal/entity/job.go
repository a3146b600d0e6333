package entity

// Job represents one repair job row for data transfer between layers.
type Job struct {
	ID             string `json:"uid"`
	CustomerName   string `json:"customerName"`
	MobileNumber   string `json:"mobileNumber"`
	MobileModel    string `json:"mobileModel"`
	Issue          string `json:"issue"`
	CustomIssue    string `json:"customIssue,omitempty"`
	Components     string `json:"components"`
	Status         string `json:"status"`
	EntryDate      string `json:"entryDate"`
	CompletionDate string `json:"completionDate"`
	TotalAmount    string `json:"totalAmount"`
	Notes          string `json:"notes"`
}

// Stats is the dashboard summary over every job in the sheet.
type Stats struct {
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"inProgress"`
	Completed  int    `json:"completed"`
	RecentJobs []*Job `json:"recentJobs"`
}
