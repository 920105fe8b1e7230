package noticeid

import (
	"crypto/sha256"
	"fmt"
)

// FromTitleLink derives the dedup id for a notice.
// Formula: SHA256(title|link), hex encoded. Titles and links never change
// once a notice is published on the board, so the id is stable across runs.
func FromTitleLink(title, link string) string {
	content := fmt.Sprintf("%s|%s", title, link)
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}

// Verify reports whether an id matches the given title and link.
func Verify(id, title, link string) bool {
	return FromTitleLink(title, link) == id
}
