package domain

// DriftReport is the quality score bundle for a shown state.
// Lower drift is better: 0 means on topic and well cited.
type DriftReport struct {
	DriftScore  float64  `json:"drift_score" mapstructure:"drift_score"`
	Overlap     float64  `json:"overlap" mapstructure:"overlap"`
	CiteScore   float64  `json:"cite_score" mapstructure:"cite_score"`
	LengthScore float64  `json:"length_score" mapstructure:"length_score"`
	Flags       []string `json:"flags" mapstructure:"flags"`
}

// TraceRun is one sub-run record from the trace detail endpoint.
type TraceRun struct {
	ID      string `json:"id" mapstructure:"id"`
	Name    string `json:"name" mapstructure:"name"`
	RunType string `json:"run_type" mapstructure:"run_type"`
	Status  string `json:"status" mapstructure:"status"`
	Error   string `json:"error,omitempty" mapstructure:"error"`
}

// TraceReport is the trace detail for one run.
type TraceReport struct {
	RunID   string     `json:"run_id" mapstructure:"run_id"`
	TraceID string     `json:"trace_id,omitempty" mapstructure:"trace_id"`
	Runs    []TraceRun `json:"runs" mapstructure:"runs"`
	Error   string     `json:"error,omitempty" mapstructure:"error"`
}
