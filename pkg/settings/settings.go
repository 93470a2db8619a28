package settings

// ApiTypeGemini keys the API settings maps: "<api>-api-key" and
// "<api>-base-url".
const ApiTypeGemini = "gemini"

// ChatSettings holds generation parameters. Pointer fields mean "not set,
// use the provider default".
type ChatSettings struct {
	Temperature       *float64 `yaml:"temperature,omitempty"`
	TopP              *float64 `yaml:"top_p,omitempty"`
	MaxResponseTokens *int     `yaml:"max_response_tokens,omitempty"`
}

type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty"`
}

type StepSettings struct {
	Chat *ChatSettings `yaml:"chat,omitempty"`
	API  *APISettings  `yaml:"api,omitempty"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		Chat: &ChatSettings{},
		API: &APISettings{
			APIKeys:  map[string]string{},
			BaseUrls: map[string]string{},
		},
	}
}

func (s *StepSettings) APIKey(apiType string) string {
	if s == nil || s.API == nil {
		return ""
	}
	return s.API.APIKeys[apiType+"-api-key"]
}

func (s *StepSettings) BaseURL(apiType string) string {
	if s == nil || s.API == nil {
		return ""
	}
	return s.API.BaseUrls[apiType+"-base-url"]
}
