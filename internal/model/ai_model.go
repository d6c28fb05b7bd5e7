package model

// AIModel is an entry in the fixed demo model catalog.
type AIModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description,omitempty"`
}
