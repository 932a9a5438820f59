package model

// BarcodeType classifies the identifier a product was looked up by.
type BarcodeType string

// Barcode types, inferred from the original lookup identifier: exactly 12
// digits is a UPC, exactly 13 an EAN, anything else (including free-text
// queries) falls back to GTIN.
const (
	BarcodeUPC  BarcodeType = "upc"
	BarcodeEAN  BarcodeType = "ean"
	BarcodeGTIN BarcodeType = "gtin"
)

// Barcode is the identifier a normalized product carries.
type Barcode struct {
	Type  BarcodeType `json:"type"`
	Value string      `json:"value"`
}

// Resolution states for mapping a product's brand to a registry company.
// Only ResolutionUnresolved is produced today; the other two exist so a
// future resolver can be introduced without reshaping callers.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionResolved   Resolution = "resolved"
	ResolutionAmbiguous  Resolution = "ambiguous"
)

// CompanyCandidate is one possible registry match for a brand token.
type CompanyCandidate struct {
	CompanyID  string  `json:"companyId"`
	Confidence float64 `json:"confidence"`
	Name       string  `json:"name"`
}

// CompanyMatch is the outcome of company resolution for a product.
type CompanyMatch struct {
	Resolution Resolution         `json:"resolution"`
	CompanyID  string             `json:"companyId,omitempty"`
	Candidates []CompanyCandidate `json:"candidates"`
}

// ProductSource records the provenance of a normalized product.
type ProductSource struct {
	Name        string `json:"name"`
	RecordID    string `json:"recordId"`
	LastUpdated string `json:"lastUpdated"`
}

// Product is the canonical representation of an external catalog record.
// It is ephemeral: produced per lookup and persisted only in the product
// cache.
type Product struct {
	ID           string        `json:"id"`
	Barcode      Barcode       `json:"barcode"`
	Name         string        `json:"name"`
	Brand        string        `json:"brand"`
	BrandAliases []string      `json:"brandAliases"`
	Category     string        `json:"category"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	Company      CompanyMatch  `json:"company"`
	Source       ProductSource `json:"source"`
}
