package contracts

// Canonical field keys. Provider records, aggregates, and the pattern
// catalog all refer to numeric fields by these names.
const (
	FieldPopulation         = "population"
	FieldMedianAge          = "median_age"
	FieldMedianIncome       = "median_income"
	FieldPovertyRate        = "poverty_rate"
	FieldEducation          = "education"
	FieldUnemploymentRate   = "unemployment_rate"
	FieldUnemploymentChange = "unemployment_change"
	FieldInflationRate      = "inflation_rate"
	FieldMortgageRate       = "mortgage_rate"
	FieldGDPPerCapita       = "gdp_per_capita"
	FieldTopShare           = "top_share"
	FieldBottomShare        = "bottom_share"
	FieldGini               = "gini"
	FieldInequalityIndex    = "inequality_index"
	FieldHealthScore        = "health_score"
)

// Source names as recorded in SourceFailure entries.
const (
	SourceCensus = "census"
	SourceBLS    = "bls"
	SourceFRED   = "fred"
	SourceWealth = "wealth"
)

// SourceFailure records a provider adapter falling back to synthetic
// defaults after exhausting retries. It is data quality metadata, not an
// error: enrichment continues with the degraded record.
type SourceFailure struct {
	Source   string `json:"source"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

// DemographicRecord is the Census ACS response normalized to canonical
// fields. Fields the provider did not return are listed in FieldsMissing
// rather than silently defaulted.
type DemographicRecord struct {
	Population    int64   `json:"population"`
	MedianAge     float64 `json:"median_age"`
	MedianIncome  float64 `json:"median_income"`
	PovertyRate   float64 `json:"poverty_rate"`   // percent, all ages
	EducationPct  float64 `json:"education_pct"`  // percent with bachelor's or above
	FieldsMissing []string `json:"fields_missing,omitempty"`
}

// DemographicFields lists every canonical field a demographic record carries.
func DemographicFields() []string {
	return []string{FieldPopulation, FieldMedianAge, FieldMedianIncome, FieldPovertyRate, FieldEducation}
}

// EmploymentRecord is the BLS LAUS response normalized to canonical fields.
type EmploymentRecord struct {
	UnemploymentRate   float64  `json:"unemployment_rate"`   // percent, latest month
	UnemploymentChange float64  `json:"unemployment_change"` // percentage points over 12 months
	FieldsMissing      []string `json:"fields_missing,omitempty"`
}

// EmploymentFields lists every canonical field an employment record carries.
func EmploymentFields() []string {
	return []string{FieldUnemploymentRate, FieldUnemploymentChange}
}

// EconomicRecord is the FRED response normalized to canonical fields.
type EconomicRecord struct {
	InflationRate float64  `json:"inflation_rate"` // CPI year-over-year percent
	MortgageRate  float64  `json:"mortgage_rate"`  // 30-year fixed, percent
	GDPPerCapita  float64  `json:"gdp_per_capita"` // chained dollars
	FieldsMissing []string `json:"fields_missing,omitempty"`
}

// EconomicFields lists every canonical field an economic record carries.
func EconomicFields() []string {
	return []string{FieldInflationRate, FieldMortgageRate, FieldGDPPerCapita}
}

// WealthRecord holds wealth-share figures from the read-only wealth store.
// This pipeline never computes these values, only consumes them.
type WealthRecord struct {
	TopShare      float64  `json:"top_share"`    // top 1% share of net worth, percent
	BottomShare   float64  `json:"bottom_share"` // bottom 50% share of net worth, percent
	Gini          float64  `json:"gini"`
	FieldsMissing []string `json:"fields_missing,omitempty"`
}

// WealthFields lists every canonical field a wealth record carries.
func WealthFields() []string {
	return []string{FieldTopShare, FieldBottomShare, FieldGini}
}

// Missing reports whether the given canonical field is absent from the record.
func Missing(fieldsMissing []string, field string) bool {
	for _, f := range fieldsMissing {
		if f == field {
			return true
		}
	}
	return false
}
