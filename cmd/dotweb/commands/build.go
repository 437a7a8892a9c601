package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/livetemplate/dotweb"
	"github.com/livetemplate/dotweb/internal/config"
)

// BuildCommand implements the build command.
func BuildCommand(args []string) error {
	var input, output string
	var debug bool

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a file name", arg)
			}
			output = args[i+1]
			i++
		case strings.HasPrefix(arg, "--output="):
			output = strings.TrimPrefix(arg, "--output=")
		case arg == "--debug":
			debug = true
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			if input != "" {
				return fmt.Errorf("build takes one input file, got %s and %s", input, arg)
			}
			input = arg
		}
	}

	if input == "" {
		return fmt.Errorf("input file required\n\nUsage: dotweb build <file.web> [-o out.html]")
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".html"
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	cfg, err := config.LoadFromDir(filepath.Dir(input))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	html, err := dotweb.Compile(string(source),
		dotweb.WithDebug(debug || cfg.Server.Debug),
		dotweb.WithDocumentDefaults(documentDefaults(cfg)),
	)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(output, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("✅ Built %s → %s (%d bytes)\n", input, output, len(html))
	return nil
}

// documentDefaults maps the config document section to compiler defaults.
func documentDefaults(cfg *config.Config) dotweb.Metadata {
	return dotweb.Metadata{
		Title:       cfg.Document.Title,
		Lang:        cfg.Document.Lang,
		Description: cfg.Document.Description,
		Author:      cfg.Document.Author,
	}
}
