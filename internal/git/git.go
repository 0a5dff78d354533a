// Package git derives git branch names for assigned tasks. It does
// not shell out to git itself — marcus coordinates task assignment,
// it does not manage a worktree — but agents consistently need a
// collision-resistant branch name to start work on, so the engine
// hands one back alongside every assignment.
package git

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	multiHyphen  = regexp.MustCompile(`-+`)
)

// maxSlugLen bounds the title portion so branch names stay readable
// in `git branch`/CI output regardless of how long a task title is.
const maxSlugLen = 40

// BranchName derives a sanitized "task/<id>-<slug>" branch name from
// a task id and title: lowercased, spaces turned into hyphens, other
// punctuation dropped, runs of hyphens collapsed to one, truncated
// without trailing punctuation.
func BranchName(taskID, title string) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = multiHyphen.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}

	if slug == "" {
		return fmt.Sprintf("task/%s", taskID)
	}
	return fmt.Sprintf("task/%s-%s", taskID, slug)
}
