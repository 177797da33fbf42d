package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario file: %v", err)
	}
	return path
}

func TestLoadScenarios(t *testing.T) {
	path := writeScenarioFile(t, `
scenarios:
  - name: Warm Up
    prompt: Say hello.
    max_tokens: 25
  - name: No Budget
    prompt: Tell me a joke.
`)

	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatalf("LoadScenarios failed: %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("got %d scenarios", len(scenarios))
	}
	if scenarios[0].Name != "Warm Up" || scenarios[0].Prompt != "Say hello." || scenarios[0].MaxTokens != 25 {
		t.Errorf("scenarios[0] = %+v", scenarios[0])
	}
	if scenarios[1].MaxTokens != 100 {
		t.Errorf("missing max_tokens should default to 100, got %d", scenarios[1].MaxTokens)
	}
}

func TestLoadScenariosValidation(t *testing.T) {
	path := writeScenarioFile(t, `
scenarios:
  - prompt: orphan prompt
  - name: No Prompt
`)

	_, err := LoadScenarios(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	issues := verr.Issues()
	if len(issues) != 2 {
		t.Fatalf("issues = %v", issues)
	}
	if !strings.Contains(issues[0], "scenarios[0]: name is required") {
		t.Errorf("issues[0] = %q", issues[0])
	}
	if !strings.Contains(issues[1], "scenarios[1]: prompt is required") {
		t.Errorf("issues[1] = %q", issues[1])
	}
}

func TestLoadScenariosEmpty(t *testing.T) {
	path := writeScenarioFile(t, "scenarios: []\n")

	_, err := LoadScenarios(path)
	if err == nil || !strings.Contains(err.Error(), "defines no scenarios") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadScenariosMissingFile(t *testing.T) {
	_, err := LoadScenarios(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read scenario file") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadScenariosBadYAML(t *testing.T) {
	path := writeScenarioFile(t, "scenarios: [\n")

	_, err := LoadScenarios(path)
	if err == nil || !strings.Contains(err.Error(), "parse scenario file") {
		t.Errorf("error = %v", err)
	}
}

func TestCheckScenarioDefaults(t *testing.T) {
	scenarios := CheckScenarios()
	if len(scenarios) != 4 {
		t.Fatalf("got %d check scenarios", len(scenarios))
	}
	if scenarios[0].Name != "Simple Question" || scenarios[0].MaxTokens != 50 {
		t.Errorf("scenarios[0] = %+v", scenarios[0])
	}
	if scenarios[3].Name != "Code Generation" || scenarios[3].MaxTokens != 200 {
		t.Errorf("scenarios[3] = %+v", scenarios[3])
	}
}

func TestStreamScenarioDefaults(t *testing.T) {
	scenarios := StreamScenarios()
	if len(scenarios) != 3 {
		t.Fatalf("got %d stream scenarios", len(scenarios))
	}
	for _, sc := range scenarios {
		if sc.Name == "" || sc.Prompt == "" || sc.MaxTokens == 0 {
			t.Errorf("incomplete scenario %+v", sc)
		}
	}
}
