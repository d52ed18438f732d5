package analytics

import "fmt"

// columnMap translates logical field names to the physical column names of
// the store's wide-table schema. It mirrors the positional write layout in
// the collect package and is read-only after initialization: renaming a
// physical column here without a storage migration misaligns every query
// against historical data.
var columnMap = map[string]string{
	"host":           "blob1",
	"userAgent":      "blob2",
	"path":           "blob3",
	"country":        "blob4",
	"referrer":       "blob5",
	"browserName":    "blob6",
	"deviceModel":    "blob7",
	"siteId":         "blob8",
	"browserVersion": "blob9",
	"deviceType":     "blob10",
	"utmSource":      "blob11",
	"utmMedium":      "blob12",
	"utmCampaign":    "blob13",
	"utmTerm":        "blob14",
	"utmContent":     "blob15",

	"newVisitor": "double1",
	"newSession": "double2",
	"bounce":     "double3",
}

// ColumnFor resolves a logical field name to its physical column.
func ColumnFor(logical string) (string, error) {
	physical, ok := columnMap[logical]
	if !ok {
		return "", fmt.Errorf("no column mapping for field %q", logical)
	}
	return physical, nil
}

// mustColumn is for the package's own query builders, which only ever use
// names present in the table above.
func mustColumn(logical string) string {
	physical, err := ColumnFor(logical)
	if err != nil {
		panic(err)
	}
	return physical
}
