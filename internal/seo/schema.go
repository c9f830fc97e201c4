// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package seo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const schemaContext = "https://schema.org"

// Schema is a JSON-LD object.
type Schema map[string]interface{}

// FAQ is a question with its answer.
type FAQ struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// Crumb is one breadcrumb entry.
type Crumb struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Product is an eyewear or lens product. A nil Price omits the offer.
type Product struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Price       *float64 `json:"price,omitempty"`
}

// Review is a patient review.
type Review struct {
	Author        string  `json:"author"`
	Rating        float64 `json:"rating"`
	Text          string  `json:"text"`
	DatePublished string  `json:"date_published"`
}

// Step is one step of a how-to guide.
type Step struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// RelatedContent is a page in a topic cluster.
type RelatedContent struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SnippetFormat is how a featured snippet answer is laid out.
type SnippetFormat string

const (
	SnippetParagraph SnippetFormat = "paragraph"
	SnippetList      SnippetFormat = "list"
	SnippetTable     SnippetFormat = "table"
)

// Snippet is a question answered in featured-snippet form. Items are
// appended as a numbered list when Format is SnippetList.
type Snippet struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	Format   SnippetFormat `json:"format"`
	Items    []string      `json:"items,omitempty"`
}

// Generator builds schemas for one organization.
type Generator struct {
	org Organization

	// LastModified returns the modification date of a site path. Defaults
	// to the current date.
	LastModified func(path string) time.Time

	now func() time.Time
}

// NewGenerator creates a generator for org.
func NewGenerator(org Organization) *Generator {
	g := &Generator{org: org, now: time.Now}
	g.LastModified = func(string) time.Time { return g.now() }
	return g
}

// Organization returns the organization facts.
func (g *Generator) Organization() Organization {
	return g.org
}

func (g *Generator) address() Schema {
	a := g.org.Address
	return Schema{
		"@type":           "PostalAddress",
		"streetAddress":   a.Street,
		"addressLocality": a.Locality,
		"addressRegion":   a.Region,
		"postalCode":      a.PostalCode,
		"addressCountry":  a.Country,
	}
}

func (g *Generator) author(withEmployer bool) Schema {
	p := Schema{
		"@type":    "Person",
		"name":     g.org.Founder.Name,
		"jobTitle": g.org.Founder.JobTitle,
	}
	if withEmployer {
		p["worksFor"] = Schema{"@type": "MedicalOrganization", "name": g.org.Name}
	}
	return p
}

func medicalCondition(name string) Schema {
	return Schema{"@type": "MedicalCondition", "name": name}
}

// LocalBusiness returns the organization schema, localized for lang.
func (g *Generator) LocalBusiness(lang string) Schema {
	o := g.org

	areas := make([]Schema, 0, len(o.AreaServed))
	for _, city := range o.AreaServed {
		areas = append(areas, Schema{
			"@type":            "City",
			"name":             city,
			"containedInPlace": Schema{"@type": "State", "name": o.State},
		})
	}

	return Schema{
		"@context":           schemaContext,
		"@type":              []string{"MedicalBusiness", "LocalBusiness", "Optometrist", "HealthAndBeautyBusiness"},
		"name":               o.LocalizedName(lang),
		"alternateName":      o.AlternateName,
		"description":        o.LocalizedDescription(lang),
		"url":                o.URL,
		"telephone":          o.Telephone,
		"email":              o.Email,
		"priceRange":         o.PriceRange,
		"currenciesAccepted": "USD",
		"paymentAccepted":    o.PaymentAccepted,
		"address":            g.address(),
		"geo": Schema{
			"@type":     "GeoCoordinates",
			"latitude":  o.Latitude,
			"longitude": o.Longitude,
		},
		"openingHours": o.OpeningHours,
		"hasMap":       o.MapURL,
		"founder": Schema{
			"@type":    "Person",
			"name":     o.Founder.Name,
			"jobTitle": o.Founder.JobTitle,
			"alumniOf": o.Founder.AlumniOf,
		},
		"areaServed": areas,
		"aggregateRating": Schema{
			"@type":       "AggregateRating",
			"ratingValue": o.RatingValue,
			"reviewCount": o.ReviewCount,
			"bestRating":  "5",
		},
	}
}

// MedicalService describes a treatment offered at pageURL.
func (g *Generator) MedicalService(name, description, pageURL, lang string) Schema {
	modified := g.LastModified(strings.TrimPrefix(pageURL, strings.TrimSuffix(g.org.URL, "/"))).Format(time.DateOnly)

	return Schema{
		"@context":    schemaContext,
		"@type":       "MedicalProcedure",
		"name":        name,
		"description": description,
		"url":         pageURL,
		"relevantSpecialty": Schema{
			"@type": "MedicalSpecialty",
			"name":  "Ophthalmology",
		},
		"procedureType": "Diagnostic",
		"howPerformed":  "Physical examination using specialized medical equipment",
		"followup":      "Regular follow-up appointments to monitor progress",
		"preparation":   "No special preparation required",
		"status":        "Available",
		"provider": Schema{
			"@type":     "MedicalOrganization",
			"name":      g.org.LocalizedName(lang),
			"url":       g.org.URL,
			"telephone": g.org.Telephone,
			"email":     g.org.Email,
			"address":   g.address(),
		},
		"datePublished": modified,
		"dateModified":  modified,
	}
}

func questions(faqs []FAQ, author Schema) []Schema {
	out := make([]Schema, 0, len(faqs))
	for _, f := range faqs {
		answer := Schema{"@type": "Answer", "text": f.Answer}
		if author != nil {
			answer["author"] = author
		}
		out = append(out, Schema{
			"@type":          "Question",
			"name":           f.Question,
			"acceptedAnswer": answer,
		})
	}
	return out
}

// FAQ returns an FAQPage.
func (g *Generator) FAQ(faqs []FAQ) Schema {
	return Schema{
		"@context":   schemaContext,
		"@type":      "FAQPage",
		"mainEntity": questions(faqs, nil),
	}
}

// Breadcrumb returns a BreadcrumbList with 1-based positions.
func (g *Generator) Breadcrumb(items []Crumb) Schema {
	list := make([]Schema, 0, len(items))
	for i, c := range items {
		list = append(list, Schema{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     c.Name,
			"item":     c.URL,
		})
	}
	return Schema{
		"@context":        schemaContext,
		"@type":           "BreadcrumbList",
		"itemListElement": list,
	}
}

// Product returns a Product, with an in-stock offer when p.Price is set.
func (g *Generator) Product(p Product, currency string) Schema {
	if currency == "" {
		currency = "USD"
	}
	s := Schema{
		"@context":    schemaContext,
		"@type":       "Product",
		"name":        p.Name,
		"description": p.Description,
		"image":       p.Image,
		"brand":       Schema{"@type": "Brand", "name": g.org.Name},
	}
	if p.Price != nil {
		s["offers"] = Schema{
			"@type":         "Offer",
			"price":         strconv.FormatFloat(*p.Price, 'f', -1, 64),
			"priceCurrency": currency,
			"availability":  "https://schema.org/InStock",
			"seller":        Schema{"@type": "Organization", "name": g.org.Name},
		}
	}
	return s
}

// Review returns a Product carrying reviews of itemReviewed.
func (g *Generator) Review(itemReviewed string, reviews []Review) Schema {
	list := make([]Schema, 0, len(reviews))
	for _, r := range reviews {
		list = append(list, Schema{
			"@type":  "Review",
			"author": Schema{"@type": "Person", "name": r.Author},
			"reviewRating": Schema{
				"@type":       "Rating",
				"ratingValue": r.Rating,
				"bestRating":  "5",
			},
			"reviewBody":    r.Text,
			"datePublished": r.DatePublished,
		})
	}
	return Schema{
		"@context": schemaContext,
		"@type":    "Product",
		"name":     itemReviewed,
		"review":   list,
	}
}

// MedicalFAQ returns an FAQPage authored by the practicing doctor, about
// condition when one is given.
func (g *Generator) MedicalFAQ(faqs []FAQ, condition string) Schema {
	s := Schema{
		"@context": schemaContext,
		"@type":    "FAQPage",
		"author":   g.author(true),
		"mainEntity": questions(faqs, Schema{
			"@type":    "Person",
			"name":     g.org.Founder.Name,
			"jobTitle": g.org.Founder.JobTitle,
		}),
	}
	if condition != "" {
		s["about"] = medicalCondition(condition)
	}
	return s
}

// Article describes an educational page.
type Article struct {
	Title         string
	Description   string
	Content       string
	URL           string
	DatePublished string
	DateModified  string // defaults to DatePublished
	Condition     string
	Keywords      []string
}

// MedicalArticle returns a MedicalWebPage for a guide or blog post.
func (g *Generator) MedicalArticle(a Article) Schema {
	modified := a.DateModified
	if modified == "" {
		modified = a.DatePublished
	}

	author := g.author(true)
	author["alumniOf"] = g.org.Founder.AlumniOf

	s := Schema{
		"@context":      schemaContext,
		"@type":         "MedicalWebPage",
		"name":          a.Title,
		"description":   a.Description,
		"text":          a.Content,
		"url":           a.URL,
		"datePublished": a.DatePublished,
		"dateModified":  modified,
		"author":        author,
		"publisher": Schema{
			"@type": "MedicalOrganization",
			"name":  g.org.Name,
			"url":   g.org.URL,
			"logo":  Schema{"@type": "ImageObject", "url": g.org.Logo},
		},
		"mainEntity": Schema{
			"@type": "MedicalWebPage",
			"speakable": Schema{
				"@type":       "SpeakableSpecification",
				"cssSelector": []string{"h1", ".featured-snippet"},
			},
		},
	}
	if len(a.Keywords) > 0 {
		s["keywords"] = a.Keywords
	}
	if a.Condition != "" {
		s["about"] = medicalCondition(a.Condition)
	}
	return s
}

// HowTo returns a HowTo guide. totalTime is an ISO 8601 duration.
func (g *Generator) HowTo(name, description string, steps []Step, totalTime string, supplies []string) Schema {
	list := make([]Schema, 0, len(steps))
	for i, st := range steps {
		list = append(list, Schema{
			"@type":    "HowToStep",
			"position": i + 1,
			"name":     st.Name,
			"text":     st.Text,
		})
	}

	s := Schema{
		"@context":    schemaContext,
		"@type":       "HowTo",
		"name":        name,
		"description": description,
		"step":        list,
		"author":      g.author(false),
	}
	if totalTime != "" {
		s["totalTime"] = totalTime
	}
	if len(supplies) > 0 {
		items := make([]Schema, 0, len(supplies))
		for _, item := range supplies {
			items = append(items, Schema{"@type": "HowToSupply", "name": item})
		}
		s["supply"] = items
	}
	return s
}

// FeaturedSnippet returns a speakable Question.
func (g *Generator) FeaturedSnippet(sn Snippet) Schema {
	text := sn.Answer
	if sn.Format == SnippetList && len(sn.Items) > 0 {
		var b strings.Builder
		b.WriteString(text)
		for i, item := range sn.Items {
			fmt.Fprintf(&b, "\n%d. %s", i+1, item)
		}
		text = b.String()
	}

	return Schema{
		"@context": schemaContext,
		"@type":    "Question",
		"name":     sn.Question,
		"acceptedAnswer": Schema{
			"@type":  "Answer",
			"text":   text,
			"author": g.author(false),
		},
		"speakable": Schema{
			"@type":       "SpeakableSpecification",
			"cssSelector": []string{".featured-snippet"},
		},
	}
}

// ContentCluster returns an ItemList of pages related to topic.
func (g *Generator) ContentCluster(topic string, related []RelatedContent) Schema {
	list := make([]Schema, 0, len(related))
	for i, c := range related {
		list = append(list, Schema{
			"@type":    "ListItem",
			"position": i + 1,
			"item": Schema{
				"@type":       "WebPage",
				"name":        c.Title,
				"url":         c.URL,
				"description": c.Description,
			},
		})
	}
	return Schema{
		"@context":        schemaContext,
		"@type":           "ItemList",
		"name":            topic + " - Related Resources",
		"description":     "Comprehensive resources about " + topic + " from " + g.org.Founder.Name,
		"numberOfItems":   len(related),
		"itemListElement": list,
	}
}

// VoiceSearch returns a SpeakableSpecification pairing questions with the
// answer at the same index. Questions without an answer are dropped.
func (g *Generator) VoiceSearch(questions, answers []string) Schema {
	n := len(questions)
	if len(answers) < n {
		n = len(answers)
	}
	props := make([]Schema, 0, n)
	for i := 0; i < n; i++ {
		props = append(props, Schema{
			"@type":          "Question",
			"name":           questions[i],
			"acceptedAnswer": Schema{"@type": "Answer", "text": answers[i]},
		})
	}
	return Schema{
		"@context":        schemaContext,
		"@type":           "SpeakableSpecification",
		"cssSelector":     []string{".voice-search-optimized"},
		"xpath":           []string{"//div[@class='voice-search-optimized']"},
		"contentProperty": props,
	}
}

// Combine renders schemas as a JSON array for a single ld+json script tag.
func Combine(schemas ...Schema) (string, error) {
	if schemas == nil {
		schemas = []Schema{}
	}
	data, err := json.Marshal(schemas)
	if err != nil {
		return "", fmt.Errorf("marshal schemas: %w", err)
	}
	return string(data), nil
}
