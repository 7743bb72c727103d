package services

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

/**
 * Line oriented diff between the config on disk and the rendered config
 * @param {string} onDisk - Current file content
 * @param {string} rendered - Content furnace would write
 * @returns {string} Returns lines prefixed with "-" (disk only) or "+" (rendered only), empty if equal
 */
func DiffConf(onDisk, rendered string) string {
	if onDisk == rendered {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(onDisk, rendered)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
