package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/nightmare-engine/pkg/prompts"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <prompts.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &PromptValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Prompt templates are valid!")
}

// PromptValidator checks a prompt pack before it is pointed to by
// PROMPTS_FILE.
type PromptValidator struct {
	errors []string
}

func (v *PromptValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	ext := filepath.Ext(filename)
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("prompt file must have .yaml or .yml extension: %s", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	pack, err := prompts.Parse(data)
	if err != nil {
		return fmt.Errorf("file %s: %w", filename, err)
	}

	for _, name := range pack.Names() {
		if !isValidID(name) {
			v.addError(fmt.Sprintf("prompt name '%s' should be lowercase snake_case", name))
		}
	}

	if err := pack.Validate(); err != nil {
		v.addError(err.Error())
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *PromptValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
