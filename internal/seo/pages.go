// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package seo

import (
	"fmt"
	"time"
)

// PageType selects the schemas a marketing page embeds.
type PageType string

const (
	PageHome      PageType = "home"
	PageAbout     PageType = "about"
	PageServices  PageType = "services"
	PageTreatment PageType = "treatment"
	PageEyewear   PageType = "eyewear"
	PageContact   PageType = "contact"
)

// ParsePageType validates s. An empty string means PageHome.
func ParsePageType(s string) (PageType, error) {
	switch p := PageType(s); p {
	case "":
		return PageHome, nil
	case PageHome, PageAbout, PageServices, PageTreatment, PageEyewear, PageContact:
		return p, nil
	default:
		return "", fmt.Errorf("unknown page type %q", s)
	}
}

// PageData carries the page facts. FAQs are used by treatment pages and
// Products by eyewear pages.
type PageData struct {
	URL         string
	Title       string
	Description string
	Language    string
	FAQs        []FAQ
	Products    []Product
}

// PageSchemas returns the organization, a breadcrumb trail and any
// page-specific schemas.
func (g *Generator) PageSchemas(pageType PageType, d PageData) []Schema {
	schemas := []Schema{g.LocalBusiness(d.Language)}

	crumbs := []Crumb{{Name: "Home", URL: g.org.URL}}
	if pageType != PageHome {
		crumbs = append(crumbs, Crumb{Name: d.Title, URL: d.URL})
	}
	schemas = append(schemas, g.Breadcrumb(crumbs))

	switch pageType {
	case PageTreatment:
		schemas = append(schemas, g.MedicalService(d.Title, d.Description, d.URL, d.Language))
		if len(d.FAQs) > 0 {
			schemas = append(schemas, g.FAQ(d.FAQs))
		}
	case PageEyewear:
		for _, p := range d.Products {
			schemas = append(schemas, g.Product(p, "USD"))
		}
	}
	return schemas
}

// EducationalType selects the article schema of an educational page.
type EducationalType string

const (
	EducationalFAQ   EducationalType = "faq"
	EducationalGuide EducationalType = "guide"
	EducationalBlog  EducationalType = "blog"
)

// EducationalPage describes a guide, blog post or FAQ page.
type EducationalPage struct {
	Type        EducationalType
	Title       string
	Description string
	URL         string
	Content     string
	FAQs        []FAQ
	Condition   string
	Keywords    []string
	Related     []RelatedContent
	Snippet     *Snippet
}

// EducationalPageSchemas returns the organization, an FAQ or article schema,
// and the optional featured snippet and topic cluster.
func (g *Generator) EducationalPageSchemas(p EducationalPage) []Schema {
	schemas := []Schema{g.LocalBusiness(LangEnglish)}

	if p.Type == EducationalFAQ && len(p.FAQs) > 0 {
		schemas = append(schemas, g.MedicalFAQ(p.FAQs, p.Condition))
	} else {
		schemas = append(schemas, g.MedicalArticle(Article{
			Title:         p.Title,
			Description:   p.Description,
			Content:       p.Content,
			URL:           p.URL,
			DatePublished: g.now().UTC().Format(time.RFC3339),
			Condition:     p.Condition,
			Keywords:      p.Keywords,
		}))
	}

	if p.Snippet != nil {
		schemas = append(schemas, g.FeaturedSnippet(*p.Snippet))
	}

	if len(p.Related) > 0 {
		topic := p.Condition
		if topic == "" {
			topic = p.Title
		}
		schemas = append(schemas, g.ContentCluster(topic, p.Related))
	}
	return schemas
}
