// Package git checks whether a plaintext export is at risk of being
// committed.
//
// Checks performed:
//   - Whether the export is tracked by git (should not be)
//   - Whether the export is in .gitignore (should be)
package git
