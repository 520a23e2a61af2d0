package trigger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// RuleFileExt is the extension of rule files picked up from a directory.
const RuleFileExt = ".conf"

// LoadFile parses a rule file. Lines that cannot be parsed are reported and
// skipped; only a file that cannot be read is an error.
func LoadFile(path string, reg Registry) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule file: %w", err)
	}
	defer f.Close()

	var rules []Rule
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		r, err := ParseRule(line, reg)
		if errors.Is(err, ErrEmptyLine) {
			log.Trace().Str("file", path).Int("line", lineNo).Msg("Skipping empty line")
			continue
		}
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Source = path
				perr.Line = lineNo
			}
			log.Error().Err(err).Msg("Unable to parse trigger line")
			continue
		}
		r.Source = path
		r.Line = lineNo
		rules = append(rules, r)
	}
	if err := scanner.Err(); err != nil {
		return rules, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	return rules, nil
}

// LoadPath loads a rule file, or every *.conf file of a directory in lexical
// order.
func LoadPath(path string, reg Registry) ([]Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path, reg)
	}

	files, err := RuleFiles(path)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	for _, file := range files {
		loaded, err := LoadFile(file, reg)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Unable to read trigger file")
			continue
		}
		rules = append(rules, loaded...)
	}
	return rules, nil
}

// LoadPaths loads every path in order. Paths that cannot be read are
// reported and skipped.
func LoadPaths(paths []string, reg Registry) []Rule {
	var rules []Rule
	for _, p := range paths {
		loaded, err := LoadPath(p, reg)
		if err != nil {
			log.Error().Err(err).Str("path", p).Msg("Unable to read triggers")
		}
		rules = append(rules, loaded...)
	}
	return rules
}

// RuleFiles lists the rule files of a directory in lexical order.
func RuleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != RuleFileExt {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
