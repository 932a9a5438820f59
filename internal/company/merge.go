package company

import (
	"strings"

	"github.com/ethicalfinder/esg-api/internal/model"
)

// Merge folds an ingested record into an existing company. Names differing
// from the stored one become aliases; aliases, tickers, and domains are
// set-unioned (tickers case-insensitively); an incoming ESG source is
// appended only when its asOf strictly exceeds the latest one on record.
// Reports whether anything changed.
func Merge(dst, src *model.Company) bool {
	changed := false

	if src.Name != "" && src.Name != dst.Name {
		if appended := unionStrings(dst.Aliases, []string{src.Name}, strings.ToLower); appended != nil {
			dst.Aliases = appended
			changed = true
		}
	}
	if appended := unionStrings(dst.Aliases, src.Aliases, strings.ToLower); appended != nil {
		dst.Aliases = appended
		changed = true
	}
	if appended := unionStrings(dst.Tickers, src.Tickers, strings.ToUpper); appended != nil {
		dst.Tickers = appended
		changed = true
	}
	if appended := unionStrings(dst.Domains, src.Domains, strings.ToLower); appended != nil {
		dst.Domains = appended
		changed = true
	}
	if dst.Country == "" && src.Country != "" {
		dst.Country = src.Country
		changed = true
	}

	latest := latestAsOf(dst.ESGSources)
	for _, s := range src.ESGSources {
		if len(dst.ESGSources) == 0 || s.AsOf > latest {
			dst.ESGSources = append(dst.ESGSources, s)
			latest = latestAsOf(dst.ESGSources)
			changed = true
		}
	}
	return changed
}

// unionStrings returns existing plus the additions not already present
// under fold, or nil when nothing new was added. The original name casing
// of existing entries is preserved.
func unionStrings(existing, additions []string, fold func(string) string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[fold(v)] = true
	}

	out := existing
	added := false
	for _, v := range additions {
		if v == "" || seen[fold(v)] {
			continue
		}
		seen[fold(v)] = true
		out = append(out, v)
		added = true
	}
	if !added {
		return nil
	}
	return out
}

// latestAsOf folds the lexicographic maximum asOf over the sources.
func latestAsOf(sources []model.ESGSource) string {
	latest := ""
	for _, s := range sources {
		if s.AsOf > latest {
			latest = s.AsOf
		}
	}
	return latest
}
