// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"sort"
)

// DefaultTopN is how many pages and cities a summary lists.
const DefaultTopN = 10

// PageCount is cumulative page views of one page.
type PageCount struct {
	Page  string `json:"page"`
	Views int    `json:"views"`
}

// CityCount is the number of sessions from one "City, Region".
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Summary aggregates persisted sessions.
type Summary struct {
	TotalSessions int            `json:"total_sessions"`
	USASessions   int            `json:"usa_sessions"`
	Browsers      map[string]int `json:"browsers"`
	Devices       map[string]int `json:"devices"`
	TopPages      []PageCount    `json:"top_pages"`
	TopCities     []CityCount    `json:"top_cities"`
}

// Summarize computes totals, browser and device frequencies, the topN pages
// by cumulative views and the topN cities among sessions in targetCountry.
// Sessions are counted once per distinct SessionID (the last copy wins).
// topN <= 0 means DefaultTopN. Ties are broken alphabetically.
func Summarize(sessions []Session, targetCountry string, topN int) Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}

	unique := make(map[string]int, len(sessions))
	deduped := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if i, ok := unique[s.SessionID]; ok {
			deduped[i] = s
			continue
		}
		unique[s.SessionID] = len(deduped)
		deduped = append(deduped, s)
	}

	sum := Summary{
		TotalSessions: len(deduped),
		Browsers:      make(map[string]int),
		Devices:       make(map[string]int),
	}

	pages := make(map[string]int)
	cities := make(map[string]int)
	for _, s := range deduped {
		sum.Browsers[orUnknown(s.Browser)]++
		sum.Devices[orUnknown(s.Device)]++
		pages[s.Page] += s.PageViews

		if s.Country == targetCountry {
			sum.USASessions++
			cities[orUnknown(s.City)+", "+orUnknown(s.Region)]++
		}
	}

	for _, kv := range rank(pages, topN) {
		sum.TopPages = append(sum.TopPages, PageCount{Page: kv.key, Views: kv.n})
	}
	for _, kv := range rank(cities, topN) {
		sum.TopCities = append(sum.TopCities, CityCount{City: kv.key, Count: kv.n})
	}
	if sum.TopPages == nil {
		sum.TopPages = []PageCount{}
	}
	if sum.TopCities == nil {
		sum.TopCities = []CityCount{}
	}
	return sum
}

type keyCount struct {
	key string
	n   int
}

func rank(counts map[string]int, n int) []keyCount {
	out := make([]keyCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, keyCount{key: k, n: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
