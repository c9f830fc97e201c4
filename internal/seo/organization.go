// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package seo

// Languages with localized business names and descriptions.
const (
	LangEnglish = "en"
	LangSpanish = "es"
)

// Address is a postal address.
type Address struct {
	Street     string `koanf:"street"`
	Locality   string `koanf:"locality"`
	Region     string `koanf:"region"`
	PostalCode string `koanf:"postal_code"`
	Country    string `koanf:"country"`
}

// Person is the practicing doctor credited as author.
type Person struct {
	Name     string `koanf:"name"`
	JobTitle string `koanf:"job_title"`
	AlumniOf string `koanf:"alumni_of"`
}

// Organization holds the business facts shared by all schemas.
type Organization struct {
	Name            string   `koanf:"name"`
	AlternateName   string   `koanf:"alternate_name"` // Spanish name
	URL             string   `koanf:"url"`
	Logo            string   `koanf:"logo"`
	Telephone       string   `koanf:"telephone"`
	Email           string   `koanf:"email"`
	PriceRange      string   `koanf:"price_range"`
	PaymentAccepted string   `koanf:"payment_accepted"`
	Address         Address  `koanf:"address"`
	Latitude        string   `koanf:"latitude"`
	Longitude       string   `koanf:"longitude"`
	OpeningHours    []string `koanf:"opening_hours"`
	MapURL          string   `koanf:"map_url"`
	Founder         Person   `koanf:"founder"`
	AreaServed      []string `koanf:"area_served"`
	State           string   `koanf:"state"`
	RatingValue     string   `koanf:"rating_value"`
	ReviewCount     string   `koanf:"review_count"`
	Description     string   `koanf:"description"`
	DescriptionES   string   `koanf:"description_es"`
}

// DefaultOrganization returns the Eyecare Center of Orange County facts.
func DefaultOrganization() Organization {
	return Organization{
		Name:            "Eyecare Center of Orange County",
		AlternateName:   "Centro de Cuidado Ocular de Orange County",
		URL:             "https://eyecarecenteroc.com/",
		Logo:            "https://eyecarecenteroc.com/logo.png",
		Telephone:       "+1-949-658-2372",
		Email:           "eyecarecenteroc@gmail.com",
		PriceRange:      "$$",
		PaymentAccepted: "Cash, Check, Credit Card, Insurance",
		Address: Address{
			Street:     "801 North Tustin Ave #404",
			Locality:   "Santa Ana",
			Region:     "CA",
			PostalCode: "92705",
			Country:    "US",
		},
		Latitude:     "33.7455",
		Longitude:    "-117.8677",
		OpeningHours: []string{"Mo-Th 09:00-18:00", "Fr 09:00-17:00", "Sa 09:00-14:00"},
		MapURL:       "https://maps.google.com/?cid=123456789",
		Founder: Person{
			Name:     "Dr. Alexander Bonakdar",
			JobTitle: "Doctor of Optometry",
			AlumniOf: "UC Berkeley School of Optometry",
		},
		AreaServed:  []string{"Santa Ana", "Irvine", "Newport Beach", "Tustin", "Costa Mesa"},
		State:       "California",
		RatingValue: "4.9",
		ReviewCount: "150",
		Description: "Leading eye care center in Orange County, California. Dr. Alexander Bonakdar provides " +
			"comprehensive eye exams, dry eye treatment, keratoconus management, LASIK consultations, " +
			"and specialty contact lenses.",
		DescriptionES: "Centro líder de cuidado ocular en Orange County, California. Dr. Alexander Bonakdar " +
			"ofrece exámenes oculares completos, tratamiento de ojo seco, manejo de queratocono, " +
			"consultas LASIK y lentes de contacto especializados.",
	}
}

// LocalizedName returns the business name for lang.
func (o Organization) LocalizedName(lang string) string {
	if lang == LangSpanish && o.AlternateName != "" {
		return o.AlternateName
	}
	return o.Name
}

// LocalizedDescription returns the business description for lang.
func (o Organization) LocalizedDescription(lang string) string {
	if lang == LangSpanish && o.DescriptionES != "" {
		return o.DescriptionES
	}
	return o.Description
}
