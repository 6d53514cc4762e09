package domain

import "fmt"

// ResponseFormat constrains how the LLM is asked to shape its reply.
type ResponseFormat string

const (
	ResponseFormatJSON    ResponseFormat = "json"
	ResponseFormatDefault ResponseFormat = "default"
)

// AgentCapabilities is the immutable tuple of what an agent is allowed to
// do and how it talks to the LLM. Polymorphism in this system is data, not
// subtyping: two agents with different capabilities are the same Go type
// with different AgentCapabilities values.
type AgentCapabilities struct {
	Description  string
	SystemPrompt string

	// AuthorizedTools: empty set means "all tools permitted" (see
	// DESIGN.md's Open Question resolution). Non-empty is a whitelist.
	AuthorizedTools map[string]struct{}

	MaxReasoningTurns  int
	MaxMemoryTurns     int
	SpecializationTags map[string]struct{}

	LLMTemperature    float64
	LLMMaxTokens      int
	LLMTimeoutSeconds int
	LLMResponseFormat ResponseFormat
}

// NewAgentCapabilities validates and constructs an AgentCapabilities.
func NewAgentCapabilities(c AgentCapabilities) (AgentCapabilities, error) {
	if err := c.validate(); err != nil {
		return AgentCapabilities{}, err
	}
	return c, nil
}

// AllToolsPermitted reports whether the empty-set-means-all rule applies.
func (c AgentCapabilities) AllToolsPermitted() bool {
	return len(c.AuthorizedTools) == 0
}

// IsToolAuthorized reports whether name is usable under these capabilities.
func (c AgentCapabilities) IsToolAuthorized(name string) bool {
	if c.AllToolsPermitted() {
		return true
	}
	_, ok := c.AuthorizedTools[name]
	return ok
}

func (c AgentCapabilities) validate() error {
	if len(c.Description) < 10 {
		return fmt.Errorf("domain: description too short: %d chars (minimum 10)", len(c.Description))
	}
	if len(c.Description) > 500 {
		return fmt.Errorf("domain: description too long: %d chars (maximum 500)", len(c.Description))
	}

	for toolID := range c.AuthorizedTools {
		if toolID == "" {
			return fmt.Errorf("domain: tool ID cannot be empty string")
		}
	}

	if c.MaxReasoningTurns < 1 {
		return fmt.Errorf("domain: max_reasoning_turns must be >= 1, got %d", c.MaxReasoningTurns)
	}
	if c.MaxReasoningTurns > 100 {
		return fmt.Errorf("domain: max_reasoning_turns too high: %d (maximum 100)", c.MaxReasoningTurns)
	}
	if c.MaxMemoryTurns < 0 {
		return fmt.Errorf("domain: max_memory_turns must be >= 0, got %d", c.MaxMemoryTurns)
	}
	if c.MaxMemoryTurns > 1000 {
		return fmt.Errorf("domain: max_memory_turns too high: %d (maximum 1000)", c.MaxMemoryTurns)
	}

	for tag := range c.SpecializationTags {
		if len(tag) > 50 {
			return fmt.Errorf("domain: specialization tag too long: %q", tag)
		}
	}

	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("domain: llm_temperature must be in [0,2], got %v", c.LLMTemperature)
	}
	if c.LLMMaxTokens < 1 {
		return fmt.Errorf("domain: llm_max_tokens must be >= 1, got %d", c.LLMMaxTokens)
	}
	if c.LLMResponseFormat != "" && c.LLMResponseFormat != ResponseFormatJSON && c.LLMResponseFormat != ResponseFormatDefault {
		return fmt.Errorf("domain: llm_response_format must be %q or %q, got %q", ResponseFormatJSON, ResponseFormatDefault, c.LLMResponseFormat)
	}

	return nil
}
