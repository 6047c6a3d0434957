package model

// Company is one tracked issuer. Ticker is the primary key.
type Company struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}
