package tui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/keybinds"
	"github.com/cetmix/towered/internal/source"
)

// Run starts the editor on path. A missing file starts empty and is created on save.
func Run(path string) error {
	if err := config.Initialize(); err != nil {
		return err
	}

	settings, err := config.LoadSettings(config.GetSettingsFilePath())
	if err != nil {
		return err
	}

	logger, logFile, err := config.OpenLogFile(config.ParseLogLevel(settings.LogLevel))
	if err != nil {
		return err
	}
	defer logFile.Close()

	registry, err := keybinds.LoadOrDefault(config.KeybindsFile)
	if err != nil {
		return err
	}
	if result := keybinds.NewValidator().ValidateRegistry(registry); result.HasWarnings() {
		logger.Warn("Keybinding warnings", "details", result.String())
	}

	text, err := readScript(path)
	if err != nil {
		return err
	}

	src, closeSource, err := source.Open(context.Background(), settings, config.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	m := New(path, text, Options{
		Source:   src,
		Keybinds: registry,
		Settings: settings,
		Logger:   logger,
	})

	logger.Info("Editor started", "file", path, "source", settings.Source)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return err
	}

	return nil
}

func readScript(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
