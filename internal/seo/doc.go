// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package seo generates schema.org structured data (JSON-LD) for the practice
website.

A Generator is built around an Organization, the business facts repeated
across schemas (name, address, phone, served cities, the practicing doctor).
Every generator returns a Schema, a plain JSON object; PageSchemas and
EducationalPageSchemas assemble the set of schemas a page embeds and Combine
renders them into the content of a single <script type="application/ld+json">
tag.

Optional inputs that are empty are omitted from the output rather than
rendered as null.

Usage:

	gen := seo.NewGenerator(seo.DefaultOrganization())
	schemas := gen.PageSchemas(seo.PageTreatment, seo.PageData{
	    URL:         "https://eyecarecenteroc.com/dry-eye",
	    Title:       "Dry Eye Treatment",
	    Description: "...",
	    Language:    seo.LangEnglish,
	    FAQs:        faqs,
	})
	script, err := seo.Combine(schemas...)
*/
package seo
