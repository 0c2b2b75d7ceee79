// Package contact builds the outbound tel:, mailto: and WhatsApp links used across the site.
package contact

import (
	"fmt"
	"net/url"
	"strings"
)

const whatsAppBase = "https://wa.me/"

// WhatsAppURL returns a wa.me deep link for phone, optionally prefilled with message.
//
// wa.me expects the international number as bare digits, so formatting and a
// leading "00" international prefix are stripped.
func WhatsAppURL(phone, message string) string {
	digits := strings.TrimPrefix(digitsOnly(phone), "00")
	link := whatsAppBase + digits
	if message == "" {
		return link
	}
	return link + "?text=" + encodeComponent(message)
}

// TelURL returns a tel: link for phone with whitespace removed.
func TelURL(phone string) string {
	return "tel:" + strings.Join(strings.Fields(phone), "")
}

// MailtoURL returns a mailto: link for email.
func MailtoURL(email string) string {
	return "mailto:" + email
}

// ProductEnquiry is the prefilled WhatsApp message on product pages.
func ProductEnquiry(productName string) string {
	return fmt.Sprintf("Hi, I would like to enquire about the %s.", productName)
}

// Prefilled WhatsApp messages used by the marketing pages.
const (
	GeneralEnquiry = "Hi, I'd like to inquire about your weighing equipment."
	FAQQuestion    = "Hi, I have a question about your weighing equipment."
	QuoteRequest   = "Hi, I'd like to request a quote for weighing equipment."
	SalesEnquiry   = "Hi, I have a sales inquiry about weighing equipment."
	SupportRequest = "Hi, I need technical support for my weighing equipment."

	QuoteDetails = `Hi, I would like to request a quote for weighing equipment. Here are my requirements:

- Product:
- Quantity:
- Application:
- Location:

Please provide pricing and availability.`

	FaultReport = `Hi G&T, I'd like to report a fault with my equipment.

Equipment type:
Serial number:
Location:
Issue description:

Urgency: Normal / Urgent`

	ServiceBooking = `Hi G&T, I'd like to book a service.

Service needed (calibration / repair / installation / maintenance):
Equipment type:
Location:
Preferred date:`
)

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// encodeComponent escapes s like JavaScript's encodeURIComponent.
func encodeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(keep), keep)
	}
	return escaped
}
