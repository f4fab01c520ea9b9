package models

// RiskEntry is one row of the outlook risk register.
type RiskEntry struct {
	Risk       string `yaml:"risk" json:"risk"`
	Likelihood string `yaml:"likelihood" json:"likelihood"`
	Impact     string `yaml:"impact" json:"impact"`
	Mitigation string `yaml:"mitigation" json:"mitigation"`
}

// NarrativePackage holds the rendered commentary sections of the board pack.
type NarrativePackage struct {
	ExecutiveSummary string      `json:"executive_summary"`
	Financial        string      `json:"financial"`
	Commercial       string      `json:"commercial"`
	Customer         string      `json:"customer"`
	Operational      string      `json:"operational"`
	Outlook          string      `json:"outlook"`
	Risks            []RiskEntry `json:"risks"`
}
