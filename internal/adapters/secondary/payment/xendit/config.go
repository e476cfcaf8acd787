package xendit

type Config struct {
	SecretKey     string `envconfig:"SECRET_KEY"`
	CallbackToken string `envconfig:"CALLBACK_TOKEN"` // x-callback-token вебхука
	BaseURL       string `envconfig:"BASE_URL" default:"https://api.xendit.co"`
	InvoiceTTL    int    `envconfig:"INVOICE_TTL" default:"86400"` // в секундах
}
