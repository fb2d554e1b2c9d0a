package model

// ================ Config ================
type ConversationConfig struct {
	TTL     string `envconfig:"CONVERSATION_TTL" default:"30m"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"10"`
	}
	Tools struct {
		MaxSteps int `envconfig:"CONVERSATION_TOOL_MAX_STEPS" default:"5"`
	}
}

type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0.0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type TravelPromptConfig struct {
	AgencyName string `envconfig:"PROMPT_AGENCY_NAME" default:"Wanderplan"`
	Currency   string `envconfig:"PROMPT_CURRENCY" default:"USD"`
}

type FlightProviderConfig struct {
	BaseURL        string `envconfig:"FLIGHTS_API_URL" required:"true"`
	APIKey         string `envconfig:"FLIGHTS_API_KEY"`
	TimeoutSeconds int    `envconfig:"FLIGHTS_TIMEOUT_SECONDS" default:"30"`
}

type SearchBackendConfig struct {
	Endpoint       string `envconfig:"SEARCH_API_URL" required:"true"`
	APIKey         string `envconfig:"SEARCH_API_KEY"`
	UserContext    string `envconfig:"SEARCH_USER_CONTEXT" default:"The user is looking for travel recommendations"`
	TimeoutSeconds int    `envconfig:"SEARCH_TIMEOUT_SECONDS" default:"60"`
}

type ServerConfig struct {
	Addr         string   `envconfig:"SERVER_ADDR" default:":8080"`
	AllowOrigins []string `envconfig:"SERVER_ALLOW_ORIGINS" default:"http://localhost:5173"`
}
