package messenger

type Config struct {
	PageAccessToken string  `envconfig:"PAGE_ACCESS_TOKEN"`
	VerifyToken     string  `envconfig:"VERIFY_TOKEN"`
	GraphAPIVersion string  `envconfig:"GRAPH_API_VERSION" default:"v23.0"`
	BaseURL         string  `envconfig:"BASE_URL" default:"https://graph.facebook.com"`
	RateLimit       float64 `envconfig:"RATE_LIMIT" default:"20"` // запросов в секунду
	RateBurst       int     `envconfig:"RATE_BURST" default:"10"`
}
