// Package envfile bootstraps and reads the dotenv file that carries the
// Document Filler's runtime secrets (GEMINI_API_KEY) into its container.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shinji-kodama/docfill/internal/model"
)

// APIKeyVar is the variable the Document Filler reads its Gemini key from.
// It is passed through unvalidated; docfill only warns when it is empty.
const APIKeyVar = "GEMINI_API_KEY"

// Bootstrap creates target from template when target does not exist yet.
//
// It reports created=true only when it wrote a new file; an existing target
// is never touched. When both files are absent it returns a CLIError of
// kind env-template-missing.
func Bootstrap(target, template string) (bool, error) {
	if _, err := os.Stat(target); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}

	data, err := os.ReadFile(template)
	if errors.Is(err, fs.ErrNotExist) {
		return false, model.NewCLIError(model.KindEnvTemplateMissing,
			fmt.Sprintf("%s not found and no template at %s to create it from", filepath.Base(target), template))
	}
	if err != nil {
		return false, fmt.Errorf("read template %s: %w", template, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", target, err)
	}
	// 0600: the file is expected to hold an API key.
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", target, err)
	}
	return true, nil
}

// Load parses a dotenv file.
func Load(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse env file %s: %w", path, err)
	}
	return vars, nil
}

// ToList converts vars into the KEY=VALUE list the Docker API expects,
// sorted by key so container configs are reproducible.
func ToList(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+vars[k])
	}
	return list
}

// CheckRequired returns the keys that are missing from vars or whose value
// is blank, in the order given.
func CheckRequired(vars map[string]string, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(vars[k]) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}
