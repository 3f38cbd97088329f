package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/jmelwick/rove/schema"
)

// Workspace scopes filesystem tools to a root directory with glob-based
// access restrictions. Patterns use doublestar syntax ("**/*.key",
// ".git/**") and match paths relative to the root.
type Workspace struct {
	root     string
	hidden   []string
	readOnly []string
}

// NewWorkspace creates a workspace rooted at dir. All tool paths resolve
// relative to the root and may not escape it.
func NewWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %q is not a directory", dir)
	}
	return &Workspace{root: abs}, nil
}

// WithHidden marks paths matching the patterns as invisible to all tools.
func (w *Workspace) WithHidden(patterns ...string) *Workspace {
	w.hidden = append(w.hidden, patterns...)
	return w
}

// WithReadOnly marks paths matching the patterns as unwritable.
func (w *Workspace) WithReadOnly(patterns ...string) *Workspace {
	w.readOnly = append(w.readOnly, patterns...)
	return w
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// resolve turns a tool-supplied path into an absolute path inside the
// root, or fails when the path escapes it.
func (w *Workspace) resolve(path string) (abs, rel string, err error) {
	if path == "" {
		return "", "", fmt.Errorf("path is required")
	}
	abs = filepath.Clean(filepath.Join(w.root, path))
	rel, err = filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("path %q escapes the workspace root", path)
	}
	return abs, filepath.ToSlash(rel), nil
}

func matchAny(patterns []string, rel string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (w *Workspace) checkReadable(rel string) error {
	hidden, err := matchAny(w.hidden, rel)
	if err != nil {
		return err
	}
	if hidden {
		return fmt.Errorf("access denied: %q is hidden", rel)
	}
	return nil
}

func (w *Workspace) checkWritable(rel string) error {
	if err := w.checkReadable(rel); err != nil {
		return err
	}
	readOnly, err := matchAny(w.readOnly, rel)
	if err != nil {
		return err
	}
	if readOnly {
		return fmt.Errorf("access denied: %q is read-only", rel)
	}
	return nil
}

// ReadFile reads a file inside the workspace.
type ReadFile struct {
	ws *Workspace
}

// NewReadFile creates the read_file tool for the workspace.
func NewReadFile(ws *Workspace) *ReadFile { return &ReadFile{ws: ws} }

func (t *ReadFile) Name() string { return "read_file" }

func (t *ReadFile) Description() string {
	return "Read the entire content of a file in the workspace."
}

func (t *ReadFile) ParameterSchema() map[string]any {
	return schema.Object(map[string]*schema.Property{
		"path": schema.String("File path relative to the workspace root"),
	}, "path")
}

func (t *ReadFile) Execute(ctx context.Context, args map[string]string) (string, error) {
	abs, rel, err := t.ws.resolve(args["path"])
	if err != nil {
		return "", err
	}
	if err := t.ws.checkReadable(rel); err != nil {
		return "", err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", rel, err)
	}
	return string(content), nil
}

// WriteFile writes a file inside the workspace and reports the change as a
// unified diff against the previous content.
type WriteFile struct {
	ws *Workspace
}

// NewWriteFile creates the write_file tool for the workspace.
func NewWriteFile(ws *Workspace) *WriteFile { return &WriteFile{ws: ws} }

func (t *WriteFile) Name() string { return "write_file" }

func (t *WriteFile) Description() string {
	return "Write content to a file in the workspace, replacing it entirely. Returns a diff of the change."
}

func (t *WriteFile) ParameterSchema() map[string]any {
	return schema.Object(map[string]*schema.Property{
		"path":    schema.String("File path relative to the workspace root"),
		"content": schema.String("Full new content of the file"),
	}, "path", "content")
}

func (t *WriteFile) Execute(ctx context.Context, args map[string]string) (string, error) {
	abs, rel, err := t.ws.resolve(args["path"])
	if err != nil {
		return "", err
	}
	if err := t.ws.checkWritable(rel); err != nil {
		return "", err
	}
	content := args["content"]

	var previous string
	if old, err := os.ReadFile(abs); err == nil {
		previous = string(old)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %q: %w", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %q: %w", rel, err)
	}

	diff := computeDiff(rel, previous, content)
	if diff == "" {
		return fmt.Sprintf("Wrote %d bytes to %s (content unchanged)", len(content), rel), nil
	}
	return fmt.Sprintf("Wrote %d bytes to %s\n%s", len(content), rel, diff), nil
}

// computeDiff returns a unified diff labeled with the given path, or ""
// when the contents are equal.
func computeDiff(path, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff error: %v)", err)
	}
	return result
}

// ListFiles lists workspace files matching a glob pattern.
type ListFiles struct {
	ws *Workspace
}

// NewListFiles creates the list_files tool for the workspace.
func NewListFiles(ws *Workspace) *ListFiles { return &ListFiles{ws: ws} }

func (t *ListFiles) Name() string { return "list_files" }

func (t *ListFiles) Description() string {
	return "List files in the workspace matching a glob pattern (doublestar syntax, e.g. \"**/*.go\")."
}

func (t *ListFiles) ParameterSchema() map[string]any {
	return schema.Object(map[string]*schema.Property{
		"pattern": schema.String("Glob pattern relative to the workspace root").Default("**"),
	})
}

func (t *ListFiles) Execute(ctx context.Context, args map[string]string) (string, error) {
	pattern := args["pattern"]
	if pattern == "" {
		pattern = "**"
	}

	matches, err := doublestar.Glob(os.DirFS(t.ws.root), pattern)
	if err != nil {
		return "", fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var visible []string
	for _, rel := range matches {
		hidden, err := matchAny(t.ws.hidden, rel)
		if err != nil {
			return "", err
		}
		if !hidden {
			visible = append(visible, rel)
		}
	}
	sort.Strings(visible)

	if len(visible) == 0 {
		return fmt.Sprintf("No files match %q", pattern), nil
	}
	return strings.Join(visible, "\n"), nil
}
