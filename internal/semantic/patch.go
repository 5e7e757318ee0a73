package semantic

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff file labels are fixed: the patch is a human review artifact and is
// never parsed back by the pipeline.
const (
	patchFromFile = "original.html"
	patchToFile   = "semantic.html"
)

// Patch returns a standard two-file unified diff between the original and
// rewritten markup.
func Patch(original, rewritten string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(rewritten),
		FromFile: patchFromFile,
		ToFile:   patchToFile,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("semantic: unified diff: %w", err)
	}
	return text, nil
}
