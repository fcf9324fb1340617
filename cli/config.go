// ABOUTME: Config CLI commands
// ABOUTME: Interactive setup of the database path and model credentials
package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/harperreed/memoire/config"
)

// setupModels are offered by the setup form; any other name can be set in config.toml.
var setupModels = []string{
	config.DefaultModel,
	"claude-opus-4-20250514",
	"claude-3-5-haiku-20241022",
}

// ConfigSetupCommand asks for the settings and writes config.toml
func ConfigSetupCommand(cfg *config.Config) error {
	apiKey := ""
	model := cfg.Model
	dbPath := cfg.DBPath
	concurrency := strconv.Itoa(cfg.Concurrency)

	options := []huh.Option[string]{}
	known := false
	for _, m := range setupModels {
		options = append(options, huh.NewOption(m, m))
		known = known || m == model
	}
	if !known && model != "" {
		options = append(options, huh.NewOption(model+" (current)", model))
	}

	keyPlaceholder := "sk-ant-..."
	if cfg.HasAPIKey() {
		keyPlaceholder = "(unchanged)"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Anthropic API key").
				Description("Leave empty to keep the current key").
				Placeholder(keyPlaceholder).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewSelect[string]().
				Title("Model").
				Options(options...).
				Value(&model),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Database path").
				Value(&dbPath),
			huh.NewInput().
				Title("Parallel model calls").
				Value(&concurrency).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cfg.Model = model
	cfg.DBPath = dbPath
	cfg.Concurrency, _ = strconv.Atoi(concurrency)

	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Printf("✓ Configuration saved: %s\n", config.Path())
	return nil
}

// ConfigShowCommand prints the effective configuration
func ConfigShowCommand(cfg *config.Config) error {
	key := "not set"
	if cfg.HasAPIKey() {
		key = "set"
	}
	fmt.Printf("Config file:  %s\n", config.Path())
	fmt.Printf("Database:     %s\n", cfg.DBPath)
	fmt.Printf("API key:      %s\n", key)
	fmt.Printf("Model:        %s\n", cfg.Model)
	fmt.Printf("Base URL:     %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency:  %d\n", cfg.Concurrency)
	return nil
}
