package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/livetemplate/dotweb"
	"github.com/livetemplate/dotweb/internal/config"
	"github.com/livetemplate/dotweb/internal/server"
	"github.com/livetemplate/dotweb/internal/snippets"
)

// checker accumulates results across the checked paths.
type checker struct {
	files    int
	examples int
	failures int
}

// CheckCommand implements the check command. It compiles every .web and .dw
// file and every ```web block in Markdown files under the given paths.
func CheckCommand(args []string) error {
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		paths = append(paths, arg)
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	fmt.Printf("🔍 Checking DotWeb sources...\n\n")

	c := &checker{}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("path does not exist: %s", p)
		}
		if info.IsDir() {
			if err := c.checkDir(p); err != nil {
				return err
			}
			continue
		}
		if !c.checkable(p) {
			fmt.Printf("⚠️  Skipping %s (not a .web, .dw or .md file)\n", p)
			continue
		}
		c.checkFile(p)
	}

	fmt.Printf("\n📊 %d file(s), %d example(s), %d error(s)\n", c.files, c.examples, c.failures)
	if c.failures > 0 {
		return fmt.Errorf("%d check(s) failed", c.failures)
	}
	fmt.Printf("✅ All checks passed\n")
	return nil
}

func (c *checker) checkable(path string) bool {
	return server.IsSource(path) || strings.EqualFold(filepath.Ext(path), ".md")
}

// checkDir walks dir, honoring the ignore patterns of its dotweb.yaml.
func (c *checker) checkDir(dir string) error {
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		if rel == "." {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || cfg.IsIgnored(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && c.checkable(path) {
			c.checkFile(path)
		}
		return nil
	})
}

func (c *checker) checkFile(path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		c.failures++
		fmt.Printf("❌ %s: %v\n", path, err)
		return
	}

	if server.IsSource(path) {
		c.checkSource(path, string(source))
		return
	}
	c.checkMarkdown(path, source)
}

func (c *checker) checkSource(path, source string) {
	c.files++
	if _, err := dotweb.Compile(source); err != nil {
		c.failures++
		fmt.Printf("❌ %s\n", path)
		printError(err, 0)
		return
	}

	stats := dotweb.Analyze(source)
	fmt.Printf("✓ %s (%d chars, %d lines, %d components)\n", path, stats.Characters, stats.Lines, stats.Components)
}

func (c *checker) checkMarkdown(path string, source []byte) {
	blocks, err := snippets.Extract(source)
	if err != nil {
		c.failures++
		fmt.Printf("❌ %s: %v\n", path, err)
		return
	}
	if len(blocks) == 0 {
		return
	}

	c.files++
	failed := 0
	for _, block := range blocks {
		c.examples++
		_, err := dotweb.Compile(block.Content)

		switch {
		case block.ExpectsError() && err == nil:
			failed++
			fmt.Printf("❌ %s:%d: example %s should fail to compile (expect-error)\n", path, block.Line, block.Name())
		case !block.ExpectsError() && err != nil:
			failed++
			fmt.Printf("❌ %s:%d: example %s\n", path, errorLine(err, block.Line), block.Name())
			printError(err, block.Line-1)
		}
	}

	c.failures += failed
	if failed == 0 {
		fmt.Printf("✓ %s (%d examples)\n", path, len(blocks))
	}
}

// errorLine maps a compile error inside a snippet to its document line.
func errorLine(err error, start int) int {
	var ce *dotweb.CompileError
	if errors.As(err, &ce) && ce.Line > 0 {
		return start + ce.Line - 1
	}
	return start
}

// printError prints err indented under its file. offset shifts compile
// error lines for snippets embedded in a larger document.
func printError(err error, offset int) {
	var ce *dotweb.CompileError
	if !errors.As(err, &ce) {
		fmt.Printf("   %v\n", err)
		return
	}

	shifted := *ce
	if shifted.Line > 0 {
		shifted.Line += offset
	}
	for _, line := range strings.Split(strings.TrimRight(shifted.Format(), "\n"), "\n") {
		fmt.Printf("   %s\n", line)
	}
}
