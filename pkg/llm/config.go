package llm

import "time"

// Config is the resolved connection and model configuration an
// HTTPClient needs. pkg/config.Load produces one of these by merging
// constructor arguments, a config file, environment variables, and
// built-in defaults, in that precedence order.
type Config struct {
	BaseURL string
	APIKey  string

	APIService     string
	EmbedService   string
	FimService     string
	ModelsService  string
	BalanceService string

	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Stream      bool

	Email       string
	Password    string
	AuthEnabled bool
	AuthService string
}

// DefaultConfig returns the built-in connection defaults, targeting the
// DeepSeek chat-completion endpoint layout.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.deepseek.com",
		APIService:     "chat/completions",
		FimService:     "beta/completions",
		ModelsService:  "models",
		BalanceService: "user/balance",
		Model:          "deepseek-chat",
		Temperature:    0.0,
		MaxTokens:      4000,
		Timeout:        60 * time.Second,
		AuthService:    "api/v1/auths/signin",
	}
}
