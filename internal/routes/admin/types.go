package admin

type CleanupInput struct {
	Type    *string `json:"type"`
	DaysOld *int    `json:"daysOld"`
}

const (
	CleanupTypeRequests = "requests"
	CleanupTypeFull     = "full"
)
