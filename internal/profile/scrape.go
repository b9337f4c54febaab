package profile

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/campaign-studio/internal/types"
)

// Caps on scraped signal lists. The LLM synthesis step gets these as raw
// material, so the caps bound prompt size rather than output quality.
const (
	maxKeywords         = 50
	maxProductsServices = 10
	maxDifferentiators  = 8
)

// ExtractMetadata collects page title, meta description, Open Graph and
// Twitter card tags from the document.
func ExtractMetadata(doc *goquery.Document) map[string]string {
	metadata := make(map[string]string)

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		metadata["description"] = strings.TrimSpace(desc)
	}
	if kw, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		metadata["meta_keywords"] = strings.TrimSpace(kw)
	}

	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		if content, ok := s.Attr("content"); ok {
			metadata[strings.TrimPrefix(prop, "og:")] = strings.TrimSpace(content)
		}
	})
	doc.Find(`meta[name^="twitter:"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		key := strings.TrimPrefix(name, "twitter:")
		if _, exists := metadata[key]; exists {
			return
		}
		if content, ok := s.Attr("content"); ok {
			metadata[key] = strings.TrimSpace(content)
		}
	})

	return metadata
}

var wordRe = regexp.MustCompile(`\b[A-Za-z]{3,}\b`)

// ExtractKeywords mines marketing-relevant keywords from headings and
// emphasized text, falling back to the body text when the page has neither.
func ExtractKeywords(doc *goquery.Document, bodyText string) []string {
	seen := make(map[string]bool)

	collect := func(text string) {
		for _, phrase := range extractPhrases(text) {
			seen[phrase] = true
		}
	}

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		collect(strings.TrimSpace(s.Text()))
	})
	doc.Find("strong, em, b").Each(func(_ int, s *goquery.Selection) {
		collect(strings.TrimSpace(s.Text()))
	})
	if len(seen) == 0 {
		collect(bodyText)
	}

	var keywords []string
	for kw := range seen {
		if len(kw) > 2 && len(strings.Fields(kw)) <= 4 {
			keywords = append(keywords, kw)
		}
	}
	sort.Strings(keywords)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// extractPhrases breaks text into single important words and two-word
// phrases.
func extractPhrases(text string) []string {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	var phrases []string

	singles := 0
	for _, w := range words {
		if len(w) >= 4 {
			phrases = append(phrases, w)
			singles++
			if singles >= 20 {
				break
			}
		}
	}

	for i := 0; i+1 < len(words); i++ {
		phrase := words[i] + " " + words[i+1]
		if len(phrase) >= 6 {
			phrases = append(phrases, phrase)
		}
	}
	return phrases
}

var productIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)we offer\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)our services include\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)we provide\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)specializing in\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)products:\s*([^.!?]+)`),
	regexp.MustCompile(`(?i)services:\s*([^.!?]+)`),
}

// IdentifyProductsServices pulls products and services out of common
// self-description phrasings.
func IdentifyProductsServices(text string) []string {
	var out []string
	for _, re := range productIndicators {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, strings.TrimSpace(m[1]))
			if len(out) >= maxProductsServices {
				return out
			}
		}
	}
	return out
}

var differentiatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)unlike\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)only\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)first\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)unique\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)exclusively\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)pioneering\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)#1\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)leading\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)award[- ]winning\s+([^.!?]+)`),
}

// FindDifferentiators pulls out language that positions the business
// against its competition.
func FindDifferentiators(text string) []string {
	var out []string
	for _, re := range differentiatorPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, strings.TrimSpace(m[1]))
			if len(out) >= maxDifferentiators {
				return out
			}
		}
	}
	return out
}

var (
	phoneRe   = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	emailRe   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	addressRe = regexp.MustCompile(`(?i)\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd)`)
)

// ExtractContact mines phone, email, and street address from page text.
func ExtractContact(text string) types.BusinessContact {
	var contact types.BusinessContact
	if m := phoneRe.FindString(text); m != "" {
		contact.Phone = m
	}
	if m := emailRe.FindString(text); m != "" {
		contact.Email = m
	}
	if m := addressRe.FindString(text); m != "" {
		contact.Address = strings.TrimSpace(m)
	}
	return contact
}
