package commands

import (
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed all:templates
var templatesFS embed.FS

// validTemplates lists all available template types
var validTemplates = []string{
	"basic",
	"card",
	"landing",
}

// templateDescriptions provides help text for each template
var templateDescriptions = map[string]string{
	"basic":   "Single page with a ViewPort and one component",
	"card":    "Reusable card component with styles and a slot",
	"landing": "Landing page with hero, features and an interactive counter",
}

// NewCommand implements the new command.
func NewCommand(args []string) error {
	flagSet := flag.NewFlagSet("new", flag.ContinueOnError)
	templateName := flagSet.String("template", "basic", "Template type: "+strings.Join(validTemplates, ", "))
	showList := flagSet.Bool("list", false, "List available templates")

	flagSet.Usage = func() {
		fmt.Println("Usage: dotweb new [options] <project-name>")
		fmt.Println()
		fmt.Println("Create a new DotWeb project from a template.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
		fmt.Println()
		printTemplates()
	}

	if err := flagSet.Parse(reorderFlags(args)); err != nil {
		return err
	}

	if *showList {
		fmt.Println("Available templates:")
		fmt.Println()
		printTemplates()
		return nil
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) < 1 {
		return fmt.Errorf("project name required\n\nUsage: dotweb new [options] <project-name>\n\nRun 'dotweb new --help' for more information")
	}
	projectName := remainingArgs[0]

	if !isValidTemplate(*templateName) {
		return fmt.Errorf("unknown template: %s\n\nAvailable templates: %s", *templateName, strings.Join(validTemplates, ", "))
	}
	if strings.ContainsAny(projectName, " \t") {
		return fmt.Errorf("project name cannot contain spaces")
	}
	if _, err := os.Stat(projectName); !os.IsNotExist(err) {
		return fmt.Errorf("directory '%s' already exists", projectName)
	}

	return createProject(projectName, *templateName)
}

// reorderFlags moves flags ahead of positional arguments so that
// "new my-site --template=card" parses like "new --template=card my-site".
func reorderFlags(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		if (arg == "--template" || arg == "-template") && i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positional...)
}

func printTemplates() {
	for _, t := range validTemplates {
		fmt.Printf("  %-10s %s\n", t, templateDescriptions[t])
	}
}

// isValidTemplate checks if a template name is valid
func isValidTemplate(name string) bool {
	for _, t := range validTemplates {
		if t == name {
			return true
		}
	}
	return false
}

// createProject creates a new project from a template
func createProject(projectName, templateName string) error {
	data := map[string]string{
		"Title":        toTitle(filepath.Base(projectName)),
		"ProjectName":  filepath.Base(projectName),
		"TemplateName": templateName,
	}

	templateDir := "templates/" + templateName

	var files []string
	err := fs.WalkDir(templatesFS, templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("template '%s' has no files", templateName)
	}

	if err := os.MkdirAll(projectName, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	for _, templatePath := range files {
		if err := processTemplateFile(projectName, templateDir, templatePath, data); err != nil {
			os.RemoveAll(projectName)
			return err
		}
	}

	printSuccessMessage(projectName, templateName)
	return nil
}

// processTemplateFile renders a template file into the project directory.
// Scaffolding variables use [[.Var]] so DotWeb's {$expr} syntax is left alone.
func processTemplateFile(projectName, templateDir, templatePath string, data map[string]string) error {
	content, err := templatesFS.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}

	relativePath := strings.TrimPrefix(templatePath, templateDir+"/")
	outputPath := filepath.Join(projectName, filepath.FromSlash(relativePath))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(outputPath), err)
	}

	tmpl, err := template.New(filepath.Base(templatePath)).Delims("[[", "]]").Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write template %s: %w", templatePath, err)
	}
	return nil
}

// printSuccessMessage displays the project creation success message
func printSuccessMessage(projectName, templateName string) {
	fmt.Printf("✨ Created new %s project: %s\n\n", templateName, projectName)
	fmt.Printf("🚀 Next steps:\n")
	fmt.Printf("   cd %s\n", projectName)
	fmt.Printf("   dotweb serve\n\n")
	fmt.Printf("📚 Your site will be available at http://localhost:8080\n")
}

// toTitle converts a project name to a title case string
// Example: "my-site" -> "My Site"
func toTitle(name string) string {
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")

	words := strings.Fields(name)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
