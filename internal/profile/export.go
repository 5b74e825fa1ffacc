package profile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/illarion/envvault/internal/crypto"
	"github.com/illarion/envvault/internal/env"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
)

// Select returns the records named in keys, in profile order. An empty
// keys selects everything. Unknown names are ignored.
func (p *Profile) Select(keys []string) []env.Env {
	all := p.Envs.Envs()
	if len(keys) == 0 {
		return all
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	selected := all[:0]
	for _, e := range all {
		if want[e.Name] {
			selected = append(selected, e)
		}
	}
	return selected
}

// WriteExport writes the selected records as KEY=VALUE lines. Values are
// written verbatim, without quoting.
func (p *Profile) WriteExport(w io.Writer, keys []string) error {
	if p.Envs.Len() == 0 {
		return ErrEmptyProfile
	}
	selected := p.Select(keys)
	if len(selected) == 0 {
		return fmt.Errorf("%w: no records match %s", ErrEmptyProfile, strings.Join(keys, ", "))
	}

	bw := bufio.NewWriter(w)
	for _, e := range selected {
		bw.WriteString(e.Name)
		bw.WriteByte('=')
		bw.WriteString(e.Value)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Export writes the selected records to path with owner-only permissions.
func (p *Profile) Export(path string, keys []string) error {
	var buf bytes.Buffer
	if err := p.WriteExport(&buf, keys); err != nil {
		return err
	}
	data := buf.Bytes()
	defer crypto.ClearBytes(data)

	if err := writeFileAtomic(path, data, FilePermSecure); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	p.log.Info("exported profile", zap.String("path", path), zap.Int("records", len(p.Select(keys))))
	return nil
}

// Diff returns a unified diff from the profile's export form to local,
// or an empty string when they match.
func (p *Profile) Diff(label string, local []byte) (string, error) {
	var buf bytes.Buffer
	if p.Envs.Len() > 0 {
		if err := p.WriteExport(&buf, nil); err != nil {
			return "", err
		}
	}
	defer crypto.ClearBytes(buf.Bytes())
	return GenerateUnifiedDiff(label, buf.Bytes(), local), nil
}

// GenerateUnifiedDiff generates a unified diff using go-diff library
// Returns the diff output, or empty string if the inputs are identical
func GenerateUnifiedDiff(path string, vaultData, localData []byte) string {
	if bytes.Equal(vaultData, localData) {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	vaultStr, localStr := string(vaultData), string(localData)
	a, b, lineArray := dmp.DiffLinesToChars(vaultStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(vaultStr, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", path))
	result.WriteString(fmt.Sprintf("+++ b/%s\n", path))
	result.WriteString(dmp.PatchToText(patches))

	return result.String()
}
