package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptFiles reads prompt files into their inline fields. An inline
// prompt and a file for the same role are mutually exclusive.
func (n *NarrativeConfig) loadPromptFiles() error {
	prompts := []struct {
		role   string
		file   string
		target *string
	}{
		{"system", n.SystemPromptFile, &n.SystemPrompt},
		{"user", n.UserPromptFile, &n.UserPrompt},
	}

	for _, p := range prompts {
		if p.file == "" {
			continue
		}
		if strings.TrimSpace(*p.target) != "" {
			return fmt.Errorf("cannot specify both %sPrompt and %sPromptFile - choose one", p.role, p.role)
		}
		content, err := loadPromptFromFile(p.file, p.role)
		if err != nil {
			return err
		}
		*p.target = content
	}
	return nil
}

// loadPromptFromFile reads one prompt, rejecting missing or blank files
func loadPromptFromFile(filePath, role string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", role, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s prompt file not found: %s", role, absPath)
		}
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", role, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", role, absPath)
	}

	log.Printf("[CONFIG] Loaded %s narrative prompt from file: %s (%d characters)", role, absPath, len(trimmed))
	return trimmed, nil
}
