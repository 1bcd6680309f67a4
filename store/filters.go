package store

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ReportFilter selects reports for listing. Zero-valued fields are ignored.
type ReportFilter struct {
	Status   string
	CropType string
	Province string
	District string
	Owner    string

	Limit int
	Page  int
}

// Normalize applies the listing defaults and caps.
func (f *ReportFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

// Offset returns the row offset for the normalized page.
func (f *ReportFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// LeaderboardSort selects the ranking column for TopUsers.
type LeaderboardSort string

const (
	SortByReputation LeaderboardSort = "reputation"
	SortByReports    LeaderboardSort = "reports"
	SortByEarnings   LeaderboardSort = "earnings"
)

// RegionStat is one row of the aggregated map data: report counts and summed
// quantity for a crop within a district.
type RegionStat struct {
	Province        string  `json:"province" db:"province"`
	District        string  `json:"district" db:"district"`
	CropType        string  `json:"cropType" db:"crop_type"`
	Reports         int     `json:"reports" db:"reports"`
	VerifiedReports int     `json:"verifiedReports" db:"verified_reports"`
	TotalQuantity   float64 `json:"totalQuantity" db:"total_quantity"`
}
