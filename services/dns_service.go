package services

import (
	"os"
	"path/filepath"
	"strings"

	"furnace/internal/models"
	"furnace/internal/utils"
)

// ResolverSnippetPath is the dnsmasq snippet for tld.
func ResolverSnippetPath(dir, tld string) string {
	return filepath.Join(dir, "furnace-"+strings.TrimPrefix(tld, ".")+".conf")
}

/**
 * Write the dnsmasq snippet that resolves *.tld to 127.0.0.1
 * @param {string} dir - Snippet directory (~/.furnace/dnsmasq.d)
 * @param {string} tld - Site TLD
 * @param {*Renderer} renderer - Renders the snippet
 * @returns {bool} Returns true if the file changed
 * @description
 * - Restarting dnsmasq is left to the operator
 */
func WriteResolverSnippet(dir, tld string, renderer *Renderer) (bool, error) {
	text, err := renderer.RenderResolver()
	if err != nil {
		return false, err
	}
	path := ResolverSnippetPath(dir, tld)
	if cur, err := os.ReadFile(path); err == nil && string(cur) == text {
		return false, nil
	}
	if err := utils.WriteFileAtomic(path, []byte(text), 0644); err != nil {
		return false, models.IOError("write", path, err)
	}
	return true, nil
}
