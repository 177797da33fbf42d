package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario names one prompt to run with a token budget.
type Scenario struct {
	Name      string `yaml:"name"`
	Prompt    string `yaml:"prompt"`
	MaxTokens int    `yaml:"max_tokens"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

const defaultScenarioTokens = 100

// LoadScenarios reads named scenarios from a YAML file:
//
//	scenarios:
//	  - name: Simple Question
//	    prompt: What is the capital of France?
//	    max_tokens: 50
//
// Scenarios without max_tokens get a 100-token budget.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file %s defines no scenarios", path)
	}

	var issues []string
	for i := range file.Scenarios {
		sc := &file.Scenarios[i]
		if strings.TrimSpace(sc.Name) == "" {
			issues = append(issues, fmt.Sprintf("scenarios[%d]: name is required", i))
		}
		if strings.TrimSpace(sc.Prompt) == "" {
			issues = append(issues, fmt.Sprintf("scenarios[%d]: prompt is required", i))
		}
		if sc.MaxTokens < 0 {
			issues = append(issues, fmt.Sprintf("scenarios[%d]: max_tokens must be >= 0", i))
		}
		if sc.MaxTokens == 0 {
			sc.MaxTokens = defaultScenarioTokens
		}
	}
	if len(issues) > 0 {
		return nil, ValidationError{issues: issues}
	}

	return file.Scenarios, nil
}

// CheckScenarios returns the default non-streaming probe set.
func CheckScenarios() []Scenario {
	return []Scenario{
		{Name: "Simple Question", Prompt: "What is the capital of France?", MaxTokens: 50},
		{Name: "Math Problem", Prompt: "Solve: 2x + 5 = 17. Show your work.", MaxTokens: 100},
		{Name: "Creative Writing", Prompt: "Write a short poem about artificial intelligence.", MaxTokens: 150},
		{Name: "Code Generation", Prompt: "Write a Python function to calculate the factorial of a number.", MaxTokens: 200},
	}
}

// StreamScenarios returns the default streaming probe set.
func StreamScenarios() []Scenario {
	return []Scenario{
		{Name: "Short Story Generation", Prompt: "Write a short story about a robot learning to paint.", MaxTokens: 300},
		{Name: "Technical Explanation", Prompt: "Explain how neural networks work in simple terms.", MaxTokens: 250},
		{Name: "Code with Comments", Prompt: "Write a Python class for a simple calculator with detailed comments.", MaxTokens: 400},
	}
}
