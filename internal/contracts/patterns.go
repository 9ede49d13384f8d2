package contracts

// Direction is the expected sign of a mined correlation.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// CorrelationPattern is one statistically supported relationship between
// two canonical fields across the enriched profiles.
type CorrelationPattern struct {
	FieldX      string    `json:"field_x"`
	FieldY      string    `json:"field_y"`
	Direction   Direction `json:"direction"`
	Confidence  float64   `json:"confidence"` // |Pearson r|, always >= mining threshold
	SampleSize  int       `json:"sample_size"`
	Description string    `json:"description"`
	Supporting  []string  `json:"supporting_regions,omitempty"` // best-fit region codes
	Exceptions  []string  `json:"exception_regions,omitempty"`  // sign-contradicting outliers
}
