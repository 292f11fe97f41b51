package render

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
)

// Loader loads slide-source content by storage key.
type Loader func(ctx context.Context, key string) ([]byte, error)

// ImportResolver pre-expands decksh import and include statements against
// storage, so a slide source can be converted from memory without the
// referenced files being on disk.
//
// import "f.dsh" inlines the def/edef block found in f.dsh (once per source).
// include "f.dsh" inlines the whole file, expanded recursively.
type ImportResolver struct {
	Loader Loader

	// funcDefs tracks inlined function definitions for the current source
	funcDefs map[string]string
}

// NewImportResolver creates a new import resolver
func NewImportResolver(loader Loader) *ImportResolver {
	return &ImportResolver{
		Loader:   loader,
		funcDefs: make(map[string]string),
	}
}

var (
	importRegex  = regexp.MustCompile(`^\s*import\s+"([^"]+)"\s*$`)
	includeRegex = regexp.MustCompile(`^\s*include\s+"([^"]+)"\s*$`)
	defRegex     = regexp.MustCompile(`^\s*def\s+(\w+)`)
	edefRegex    = regexp.MustCompile(`^\s*edef\s*$`)
)

// Expand returns source with every import and include statement replaced by
// the content it refers to. sourceKey is the storage key of source; relative
// references resolve against its directory.
func (r *ImportResolver) Expand(ctx context.Context, source []byte, sourceKey string) ([]byte, error) {
	r.funcDefs = make(map[string]string)
	return r.expand(ctx, source, sourceKey, []string{sourceKey})
}

func (r *ImportResolver) expand(ctx context.Context, source []byte, sourceKey string, stack []string) ([]byte, error) {
	var result bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(source))

	for scanner.Scan() {
		line := scanner.Text()

		if match := importRegex.FindStringSubmatch(line); match != nil {
			importPath := match[1]
			resolved := resolveKey(importPath, sourceKey)

			content, err := r.Loader(ctx, resolved)
			if err != nil {
				return nil, fmt.Errorf("failed to load import %q: %w", importPath, err)
			}

			funcDef, funcName, err := extractFunctionDef(content)
			if err != nil {
				return nil, fmt.Errorf("failed to extract function from %q: %w", importPath, err)
			}

			if _, exists := r.funcDefs[funcName]; !exists {
				r.funcDefs[funcName] = funcDef
				fmt.Fprintf(&result, "// Function imported from: %s\n", importPath)
				result.WriteString(funcDef)
				result.WriteString("\n")
			}
			continue
		}

		if match := includeRegex.FindStringSubmatch(line); match != nil {
			includePath := match[1]
			resolved := resolveKey(includePath, sourceKey)
			for _, seen := range stack {
				if seen == resolved {
					return nil, fmt.Errorf("include cycle: %s -> %s", strings.Join(stack, " -> "), resolved)
				}
			}

			content, err := r.Loader(ctx, resolved)
			if err != nil {
				return nil, fmt.Errorf("failed to load include %q: %w", includePath, err)
			}

			expanded, err := r.expand(ctx, content, resolved, append(stack, resolved))
			if err != nil {
				return nil, fmt.Errorf("failed to expand includes in %q: %w", includePath, err)
			}

			fmt.Fprintf(&result, "// BEGIN INCLUDE: %s\n", includePath)
			result.Write(expanded)
			fmt.Fprintf(&result, "// END INCLUDE: %s\n", includePath)
			continue
		}

		result.WriteString(line)
		result.WriteString("\n")
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	return result.Bytes(), nil
}

// resolveKey resolves ref against the directory of the referencing key.
// Keys are slash separated regardless of platform.
func resolveKey(ref, fromKey string) string {
	if strings.HasPrefix(ref, "/") {
		return strings.TrimPrefix(path.Clean(ref), "/")
	}
	return path.Join(path.Dir(fromKey), ref)
}

// extractFunctionDef returns the first def/edef block in source and its name.
func extractFunctionDef(source []byte) (string, string, error) {
	var defBlock bytes.Buffer
	var funcName string
	inDef := false
	scanner := bufio.NewScanner(bytes.NewReader(source))

	for scanner.Scan() {
		line := scanner.Text()

		if match := defRegex.FindStringSubmatch(line); match != nil {
			if inDef {
				return "", "", fmt.Errorf("nested def blocks not supported")
			}
			funcName = match[1]
			inDef = true
			defBlock.WriteString(line)
			defBlock.WriteString("\n")
			continue
		}

		if edefRegex.MatchString(line) {
			if !inDef {
				return "", "", fmt.Errorf("edef without matching def")
			}
			defBlock.WriteString(line)
			return defBlock.String(), funcName, nil
		}

		// lines outside def blocks are ignored
		if inDef {
			defBlock.WriteString(line)
			defBlock.WriteString("\n")
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("failed to scan source: %w", err)
	}

	if inDef {
		return "", "", fmt.Errorf("unclosed def block for function %q", funcName)
	}

	return "", "", fmt.Errorf("no function definition found")
}

// HasImports checks if source contains any import or include statements
func HasImports(source []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(source))
	for scanner.Scan() {
		line := scanner.Text()
		if importRegex.MatchString(line) || includeRegex.MatchString(line) {
			return true
		}
	}
	return false
}

// StorageLoader creates a Loader that reads from storage.
func StorageLoader(storage interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}) Loader {
	return func(ctx context.Context, key string) ([]byte, error) {
		key = strings.TrimPrefix(key, "/")

		reader, err := storage.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("storage get failed: %w", err)
		}
		defer reader.Close()

		content, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}

		return content, nil
	}
}
