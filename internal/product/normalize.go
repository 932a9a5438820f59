// Package product maps external catalog records into the canonical
// normalized product shape.
package product

import (
	"regexp"
	"strings"
	"time"

	"github.com/ethicalfinder/esg-api/internal/model"
	"github.com/ethicalfinder/esg-api/pkg/openfoodfacts"
)

// SourceName identifies the catalog provenance on normalized products.
const SourceName = "OpenFoodFacts"

// candidateConfidence is the fixed placeholder confidence assigned to each
// brand-token candidate until a real resolver exists.
const candidateConfidence = 0.5

var (
	digits12   = regexp.MustCompile(`^\d{12}$`)
	digits13   = regexp.MustCompile(`^\d{13}$`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize converts a raw catalog record plus the original lookup
// identifier into the canonical product shape. The identifier, not the
// catalog data, drives barcode type inference; when empty the catalog's
// own code is used with the gtin fallback type.
func Normalize(raw *openfoodfacts.RawProduct, identifier string) *model.Product {
	code := raw.Code
	if code == "" {
		code = identifier
	}

	brands := ParseBrands(firstNonEmpty(raw.Brands, raw.Brand))

	brand := "Unknown Brand"
	var brandAliases []string
	if len(brands) > 0 {
		brand = brands[0]
		brandAliases = brands[1:]
	}

	lastUpdated := raw.LastModified()
	if lastUpdated == "" {
		lastUpdated = time.Now().UTC().Format(time.RFC3339)
	}

	return &model.Product{
		ID:           code,
		Barcode:      inferBarcode(identifier, code),
		Name:         firstNonEmpty(raw.ProductName, raw.Name, "Unknown Product"),
		Brand:        brand,
		BrandAliases: brandAliases,
		Category:     firstNonEmpty(raw.Categories, raw.Category, "Unknown Category"),
		ImageURL:     firstNonEmpty(raw.ImageURL, raw.ImageFrontURL),
		Company:      ResolveCompany(brands),
		Source: model.ProductSource{
			Name:        SourceName,
			RecordID:    code,
			LastUpdated: lastUpdated,
		},
	}
}

// ParseBrands splits a comma-separated brand string into trimmed, non-empty
// tokens, preserving order.
func ParseBrands(brands string) []string {
	var tokens []string
	for _, tok := range strings.Split(brands, ",") {
		if t := strings.TrimSpace(tok); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// inferBarcode classifies the original identifier: exactly 12 digits is a
// UPC, exactly 13 an EAN, anything else (free-text included) a GTIN. With
// no identifier the catalog code is carried under the gtin fallback.
func inferBarcode(identifier, code string) model.Barcode {
	if identifier == "" {
		return model.Barcode{Type: model.BarcodeGTIN, Value: code}
	}
	switch {
	case digits12.MatchString(identifier):
		return model.Barcode{Type: model.BarcodeUPC, Value: identifier}
	case digits13.MatchString(identifier):
		return model.Barcode{Type: model.BarcodeEAN, Value: identifier}
	default:
		return model.Barcode{Type: model.BarcodeGTIN, Value: identifier}
	}
}

// ResolveCompany is a stub resolver: it always reports unresolved, listing
// one candidate per brand token with a placeholder confidence and a
// deterministic synthetic id. Consumers must treat unresolved as "no match
// attempted beyond candidate listing".
func ResolveCompany(brands []string) model.CompanyMatch {
	match := model.CompanyMatch{
		Resolution: model.ResolutionUnresolved,
		Candidates: []model.CompanyCandidate{},
	}
	for _, brand := range brands {
		match.Candidates = append(match.Candidates, model.CompanyCandidate{
			CompanyID:  syntheticID(brand),
			Confidence: candidateConfidence,
			Name:       brand,
		})
	}
	return match
}

// syntheticID derives a stable placeholder id from a brand name.
func syntheticID(brand string) string {
	return "stub_" + whitespace.ReplaceAllString(strings.ToLower(brand), "_")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
