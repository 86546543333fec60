package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

const (
	defaultSearchResults = 40
	searchLineChars      = 300
	searchMaxFiles       = 20000
)

// SearchMatch is one matching line.
type SearchMatch struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchFile groups matches by workspace-relative path.
type SearchFile struct {
	Path    string        `json:"path"`
	Matches []SearchMatch `json:"matches"`
}

// searchTool implements code.search as an in-process walk of the workspace.
type searchTool struct {
	root string
}

func (t *searchTool) Name() string { return "code.search" }

func (t *searchTool) Description() string {
	return "Search workspace files for a regular expression (falls back to literal text)."
}

func (t *searchTool) Class() Class { return ClassFilesystem }

func (t *searchTool) PathArgs() []string { return []string{"path"} }

func (t *searchTool) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"query": prop("string", "Regular expression or plain text"),
		"path":  prop("string", "Optional subdirectory to limit the search"),
		"globs": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "File name patterns such as *.go",
		},
		"max_results": prop("integer", "Maximum number of matching lines (default 40)"),
	}, "query")
}

func (t *searchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(query)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(query))
	}

	start := t.root
	if p := optionalString(args, "path"); p != "" {
		start = p
	}
	globs := stringList(args, "globs")
	limit := intArg(args, "max_results", defaultSearchResults)
	if limit <= 0 {
		limit = defaultSearchResults
	}

	var (
		results   []SearchFile
		count     int
		filesSeen int
		truncated bool
	)
	walkErr := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		filesSeen++
		if filesSeen > searchMaxFiles {
			truncated = true
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(t.root, path)
		if relErr != nil {
			rel = path
		}
		if !matchesGlobs(globs, d.Name(), rel) {
			return nil
		}

		matches, full := scanFile(path, re, limit-count)
		if len(matches) > 0 {
			results = append(results, SearchFile{Path: filepath.ToSlash(rel), Matches: matches})
			count += len(matches)
		}
		if full {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("search failed: %w", walkErr)
	}

	return map[string]interface{}{
		"results":   results,
		"count":     count,
		"truncated": truncated,
	}, nil
}

func matchesGlobs(globs []string, name, rel string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
		if ok, _ := filepath.Match(g, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

// scanFile returns up to budget matching lines; full reports that the budget
// was used up. Binary files are skipped.
func scanFile(path string, re *regexp.Regexp, budget int) ([]SearchMatch, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if bytes.IndexByte(head[:n], 0) >= 0 {
		return nil, false
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, false
	}

	var matches []SearchMatch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if !re.MatchString(text) {
			continue
		}
		snippet, _ := headRunes(text, searchLineChars)
		matches = append(matches, SearchMatch{Line: line, Text: snippet})
		if len(matches) >= budget {
			return matches, true
		}
	}
	return matches, false
}
