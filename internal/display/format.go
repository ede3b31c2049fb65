// Package display turns branch states into the bounded-width labels shown on
// the status surface.
package display

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/xvierd/branchbar/internal/domain"
)

// Fixed labels. Only resolving and resolved states carry the repository prefix.
const (
	LabelUnselected  = "No repo selected"
	LabelResolving   = "Updating"
	LabelUnavailable = "Unavailable"

	// NotARepositoryMessage is shown when a chosen folder fails validation.
	NotARepositoryMessage = "The selected folder is not a git repository."

	// Ellipsis is appended to truncated labels.
	Ellipsis = "…"

	separator = " → "
)

// Format renders state as "<repoName> → <ref>" or a fixed label, truncated to
// maxWidth characters. A maxWidth of zero or less disables truncation.
func Format(state domain.BranchState, repoName string, maxWidth int) string {
	var text string
	switch state.Kind {
	case domain.StateResolving:
		text = qualify(repoName, LabelResolving)
	case domain.StateBranch, domain.StateDetached:
		text = qualify(repoName, state.Ref())
	case domain.StateUnavailable:
		text = LabelUnavailable
	default:
		text = LabelUnselected
	}
	return Truncate(text, maxWidth)
}

// Detail returns the untruncated branch text shown in detail rows.
func Detail(state domain.BranchState) string {
	switch state.Kind {
	case domain.StateResolving:
		return LabelResolving
	case domain.StateBranch, domain.StateDetached:
		return state.Ref()
	case domain.StateUnavailable:
		return LabelUnavailable
	default:
		return "-"
	}
}

// Truncate shortens text to exactly maxWidth characters, ending in an
// ellipsis, when it is longer than maxWidth. Characters are grapheme
// clusters, so flags and combining marks are never split.
func Truncate(text string, maxWidth int) string {
	if maxWidth <= 0 || uniseg.GraphemeClusterCount(text) <= maxWidth {
		return text
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(text)
	for n := 0; n < maxWidth-1 && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	b.WriteString(Ellipsis)
	return b.String()
}

func qualify(repoName, text string) string {
	if repoName == "" {
		return text
	}
	return fmt.Sprintf("%s%s%s", repoName, separator, text)
}
