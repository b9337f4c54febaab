package trends

// industryTrendKeywords seeds the research prompt with topics that are
// reliably in motion per industry, so the model has concrete anchors even
// when it knows little about a niche business.
var industryTrendKeywords = map[string][]string{
	"construction": {"home renovation trends", "sustainable building", "smart home technology", "energy efficient", "modern design"},
	"healthcare":   {"telehealth", "wellness trends", "mental health awareness", "preventive care", "health technology"},
	"legal":        {"legal tech", "online legal services", "legal education", "rights awareness", "legal advice"},
	"automotive":   {"electric vehicles", "auto technology", "car maintenance tips", "vehicle safety", "automotive innovation"},
	"restaurant":   {"food trends", "sustainable dining", "food delivery", "culinary innovation", "healthy eating"},
	"retail":       {"e-commerce trends", "sustainable shopping", "customer experience", "retail technology", "online shopping"},
	"technology":   {"ai trends", "digital transformation", "cybersecurity", "cloud computing", "tech innovation"},
	"real_estate":  {"housing market trends", "home buying tips", "real estate technology", "property investment", "market analysis"},
	"finance":      {"fintech trends", "investment strategies", "financial planning", "digital banking", "financial literacy"},
	"beauty":       {"beauty trends", "skincare innovation", "sustainable beauty", "beauty technology", "wellness beauty"},
	"fitness":      {"fitness trends", "home workouts", "wellness technology", "nutrition trends", "mental wellness"},
	"education":    {"edtech trends", "online learning", "educational innovation", "skill development", "learning technology"},
}

// genericTrendKeywords back up industries the table doesn't cover.
var genericTrendKeywords = []string{
	"viral content", "trending now", "social media trends", "customer experience",
}

// memeTemplate is one evergreen meme format businesses can adapt.
type memeTemplate struct {
	Type        string
	Description string
	Platforms   []string
}

// memeCatalog lists proven meme formats, most adaptable first.
var memeCatalog = []memeTemplate{
	{"before_after", "Before/After transformation posts", []string{"instagram", "facebook", "tiktok"}},
	{"how_it_started", "How it started vs How it's going format", []string{"twitter", "instagram", "facebook"}},
	{"relatable_moments", "Relatable customer experience memes", []string{"twitter", "instagram", "tiktok"}},
	{"expectation_reality", "Expectation vs Reality format", []string{"instagram", "tiktok", "facebook"}},
	{"pov_content", "POV (Point of View) style content", []string{"tiktok", "instagram"}},
	{"this_you", "This you? calling out format", []string{"twitter", "tiktok"}},
	{"distracted_boyfriend", "Distracted boyfriend meme template", []string{"facebook", "instagram", "twitter"}},
	{"drake_pointing", "Drake pointing meme format", []string{"instagram", "facebook", "twitter"}},
	{"woman_yelling_cat", "Woman yelling at cat meme format", []string{"facebook", "instagram", "twitter"}},
	{"expanding_brain", "Expanding brain intelligence levels", []string{"twitter", "instagram", "facebook"}},
}

// seedKeywords returns the trend seeds for an industry, merged with the
// business's own top keywords.
func seedKeywords(industry string, businessKeywords []string) []string {
	seeds, ok := industryTrendKeywords[industry]
	if !ok {
		seeds = genericTrendKeywords
	}
	out := make([]string, 0, len(seeds)+5)
	out = append(out, seeds...)
	for i, kw := range businessKeywords {
		if i >= 5 {
			break
		}
		out = append(out, kw)
	}
	return out
}
