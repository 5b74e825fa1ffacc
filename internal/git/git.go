package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExportStatus describes how git sees a plaintext export
type ExportStatus struct {
	Path    string
	IsRepo  bool
	Tracked bool // bad: the secret is committed or staged
	Ignored bool // good: it cannot be added by accident
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckExport inspects the git status of an exported file
func CheckExport(path string) (*ExportStatus, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir, base := filepath.Dir(abs), filepath.Base(abs)

	status := &ExportStatus{Path: path}
	if !IsGitRepo(dir) {
		return status, nil
	}
	status.IsRepo = true
	status.Tracked = IsTracked(dir, base)
	status.Ignored = IsIgnored(dir, base)
	return status, nil
}

// Warnings returns the problems worth telling the user about
func (s *ExportStatus) Warnings() []string {
	if !s.IsRepo {
		return nil
	}
	var warnings []string
	if s.Tracked {
		warnings = append(warnings, fmt.Sprintf("%s is tracked by git (run: git rm --cached %s)", s.Path, s.Path))
	}
	if !s.Ignored {
		warnings = append(warnings, fmt.Sprintf("%s is not in .gitignore", s.Path))
	}
	return warnings
}
