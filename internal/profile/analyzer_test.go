package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/campaign-studio/internal/fetch"
	"github.com/jonathan/campaign-studio/internal/llm"
	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// fakeLLM returns canned JSON and records the prompts it saw.
type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) GenerateText(_ context.Context, prompt string, _ llm.ModelTier, _ bool) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeLLM) Close() error                  { return nil }

const profileJSON = `{
	"business_name": "Apex Roofing",
	"industry": "construction",
	"description": "Residential roofing contractor.",
	"keywords": ["roofing", "roof repair"],
	"products_services": ["roof replacement"],
	"differentiators": ["award-winning crews"],
	"confidence": 0.85
}`

const samplePage = `<html>
<head>
	<title>Apex Roofing | Denver</title>
	<meta name="description" content="Roof repair and replacement in Denver.">
	<meta property="og:site_name" content="Apex Roofing">
	<meta name="twitter:title" content="Apex Roofing">
</head>
<body>
	<main>
		<h1>Denver Roof Repair</h1>
		<p>We offer roof replacement, storm damage repair and gutter installation.
		Award-winning crews serving the metro since 1998.</p>
		<p>Call (303) 555-0142 or email info@apexroofing.example.com.
		Visit us at 42 Summit Street.</p>
	</main>
</body>
</html>`

func testPolicy() tier.Policy {
	return tier.MustLookup(types.TierPlus)
}

func TestAnalyzeProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	fake := &fakeLLM{response: profileJSON}
	analyzer := NewAnalyzer(fake)

	got, err := analyzer.AnalyzeProfile(context.Background(), server.URL, testPolicy())
	if err != nil {
		t.Fatalf("AnalyzeProfile failed: %v", err)
	}

	if got.BusinessName != "Apex Roofing" {
		t.Errorf("BusinessName = %q", got.BusinessName)
	}
	if got.Industry != "construction" {
		t.Errorf("Industry = %q", got.Industry)
	}
	if got.Degraded {
		t.Error("full analysis must not be flagged degraded")
	}
	if got.Confidence != 0.85 {
		t.Errorf("Confidence = %v", got.Confidence)
	}
	if got.Contact.Phone == "" || got.Contact.Email == "" {
		t.Errorf("contact info not scraped: %+v", got.Contact)
	}
	if got.AnalyzedAt.IsZero() {
		t.Error("AnalyzedAt not set")
	}

	// The synthesis prompt carries scraped metadata and page text.
	if len(fake.prompts) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(fake.prompts))
	}
	if !strings.Contains(fake.prompts[0], "Apex Roofing | Denver") {
		t.Error("prompt missing page metadata")
	}
}

func TestAnalyzeProfileBlockedSiteDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fake := &fakeLLM{response: `{
		"business_name": "example",
		"industry": "technology",
		"description": "Unknown business.",
		"keywords": [],
		"products_services": [],
		"differentiators": [],
		"confidence": 0.9
	}`}
	analyzer := NewAnalyzer(fake)

	got, err := analyzer.AnalyzeProfile(context.Background(), server.URL, testPolicy())
	if err != nil {
		t.Fatalf("blocked site must degrade, not fail: %v", err)
	}
	if !got.Degraded {
		t.Error("expected degraded profile")
	}
	if got.Confidence > 0.4 {
		t.Errorf("degraded confidence must be capped at 0.4, got %v", got.Confidence)
	}
}

func TestClassifyFetchError(t *testing.T) {
	blocked := classifyFetchError("https://example.com", &fetch.Error{
		URL:     "https://example.com",
		Message: "access blocked",
	})
	if !provider.IsFetchBlocked(blocked) {
		t.Errorf("blocked fetch must classify as FetchBlockedError, got %v", blocked)
	}

	invalid := classifyFetchError("not-a-url", &fetch.Error{URL: "not-a-url", Message: "invalid URL"})
	if !provider.IsPermanent(invalid) {
		t.Errorf("invalid URL must classify as permanent, got %v", invalid)
	}

	other := classifyFetchError("https://example.com", errors.New("connection reset"))
	if !provider.IsTransient(other) {
		t.Errorf("plain fetch failure must classify as transient, got %v", other)
	}
}

func TestAnalyzeProfileServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	analyzer := NewAnalyzer(&fakeLLM{response: profileJSON})
	_, err := analyzer.AnalyzeProfile(context.Background(), server.URL, testPolicy())
	if !provider.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestAnalyzeProfileInvalidURLIsPermanent(t *testing.T) {
	analyzer := NewAnalyzer(&fakeLLM{response: profileJSON})
	_, err := analyzer.AnalyzeProfile(context.Background(), "not-a-url", testPolicy())
	if !provider.IsPermanent(err) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestAnalyzeProfileBadModelOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	analyzer := NewAnalyzer(&fakeLLM{response: `{"industry": "construction"}`})
	_, err := analyzer.AnalyzeProfile(context.Background(), server.URL, testPolicy())
	if !provider.IsTransient(err) {
		t.Errorf("schema-invalid model output should be transient, got %v", err)
	}
}

func TestAnalyzeProfileLLMErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	analyzer := NewAnalyzer(&fakeLLM{err: errors.New("rate limited")})
	_, err := analyzer.AnalyzeProfile(context.Background(), server.URL, testPolicy())
	if !provider.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestExtractMetadata(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(samplePage))
	if err != nil {
		t.Fatal(err)
	}

	metadata := ExtractMetadata(doc)
	if metadata["title"] != "Apex Roofing | Denver" {
		t.Errorf("title = %q", metadata["title"])
	}
	if metadata["site_name"] != "Apex Roofing" {
		t.Errorf("og:site_name = %q", metadata["site_name"])
	}
	if metadata["description"] != "Roof repair and replacement in Denver." {
		t.Errorf("description = %q", metadata["description"])
	}
}

func TestScrapeHelpers(t *testing.T) {
	text := `We offer roof replacement and gutter installation.
Award-winning crews serving Denver. Unlike big franchises, we answer our own phones.
Call (303) 555-0142 or email info@apexroofing.example.com. Visit 42 Summit Street.`

	products := IdentifyProductsServices(text)
	if len(products) == 0 || !strings.Contains(products[0], "roof replacement") {
		t.Errorf("products = %v", products)
	}

	diffs := FindDifferentiators(text)
	if len(diffs) == 0 {
		t.Error("expected differentiators")
	}

	contact := ExtractContact(text)
	if contact.Phone == "" {
		t.Error("phone not found")
	}
	if contact.Email != "info@apexroofing.example.com" {
		t.Errorf("email = %q", contact.Email)
	}
	if !strings.Contains(contact.Address, "42 Summit Street") {
		t.Errorf("address = %q", contact.Address)
	}
}
