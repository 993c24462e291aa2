// Package images — file naming rules.
// Provides helpers to recognize image references and derive the
// deterministic, collision-free names used for deduplication.
package images

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// imageExtensions are the extensions treated as embedded images.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".svg": true, ".webp": true, ".tif": true, ".tiff": true,
	".wmf": true, ".emf": true,
}

// IsImageFile checks if a reference points to an image by its extension.
func IsImageFile(ref string) bool {
	return imageExtensions[strings.ToLower(path.Ext(ref))]
}

// IsLocalRef reports whether an img src refers to a file in the export
// folder rather than a remote or inline resource.
func IsLocalRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "//") {
		return false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return parsed.Scheme == "" && parsed.Host == ""
}

// ResolvedName returns "{document}_html_{position}{ext}" for the
// position-th (1-based) image of a document.
func ResolvedName(document string, position int, original string) string {
	return fmt.Sprintf("%s_html_%d%s", document, position, path.Ext(original))
}

// Key is the dedup identity of an image: its resolved name without
// extension, lower-cased and trimmed.
func Key(resolvedName string) string {
	return NormalizeTitle(strings.TrimSuffix(resolvedName, path.Ext(resolvedName)))
}

// NormalizeTitle normalizes an asset title for lookups.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
