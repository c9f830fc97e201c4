// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"net/http"
	"net/url"

	"github.com/tomtom215/geogate/internal/seo"
)

// SchemaResponse is the JSON-LD for one page.
type SchemaResponse struct {
	Schemas []seo.Schema `json:"schemas"`
	// JSONLD is the schemas combined into one document, ready for a
	// <script type="application/ld+json"> tag.
	JSONLD string `json:"json_ld"`
}

// PageSchemas returns the structured data for a site page.
// Query: page (required), lang (en|es), url, title, description.
func (h *Handler) PageSchemas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pageType, err := seo.ParsePageType(q.Get("page"))
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}

	lang := q.Get("lang")
	switch lang {
	case "":
		lang = seo.LangEnglish
	case seo.LangEnglish, seo.LangSpanish:
	default:
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "lang must be en or es", nil)
		return
	}

	pageURL := q.Get("url")
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err != nil || u.Scheme == "" || u.Host == "" {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "url must be absolute", nil)
			return
		}
	}

	h.respondSchemas(w, h.seo.PageSchemas(pageType, seo.PageData{
		URL:         pageURL,
		Title:       q.Get("title"),
		Description: q.Get("description"),
		Language:    lang,
	}))
}

// EducationalSchemas returns the structured data for an educational page.
func (h *Handler) EducationalSchemas(w http.ResponseWriter, r *http.Request) {
	var req EducationalPageRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	h.respondSchemas(w, h.seo.EducationalPageSchemas(req.page()))
}

func (h *Handler) respondSchemas(w http.ResponseWriter, schemas []seo.Schema) {
	combined, err := seo.Combine(schemas...)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to encode structured data", err)
		return
	}
	respondData(w, http.StatusOK, SchemaResponse{Schemas: schemas, JSONLD: combined})
}
