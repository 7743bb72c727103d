package utils

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

const (
	ArchiveZip   = "zip"
	ArchiveTarGz = "tar.gz"
)

/**
 * Unpack an archive into a directory
 * @param {string} archivePath - Archive file
 * @param {string} archiveType - "zip" or "tar.gz"
 * @param {string} destDir - Destination directory, created if missing
 * @returns {error} Returns error on unknown type, corrupt data or unsafe entry names
 */
func ExtractArchive(archivePath, archiveType, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	switch strings.ToLower(archiveType) {
	case ArchiveZip:
		return extractZip(archivePath, destDir)
	case ArchiveTarGz, "tgz":
		return extractTarGz(archivePath, destDir)
	default:
		return fmt.Errorf("unsupported archive type %q", archiveType)
	}
}

func within(destDir, path string) bool {
	destDir = filepath.Clean(destDir)
	return path == destDir || strings.HasPrefix(path, destDir+string(os.PathSeparator))
}

/**
 * Resolve an archive entry below destDir
 * @param {string} destDir - Extraction root
 * @param {string} name - Entry name as stored in the archive
 * @returns {string} Returns the target path
 * @returns {error} Returns error if the entry escapes destDir or passes through an extracted symlink
 */
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !within(destDir, target) {
		return "", fmt.Errorf("illegal path in archive: %s", name)
	}
	rel, _ := filepath.Rel(filepath.Clean(destDir), target)
	dir := filepath.Clean(destDir)
	parts := strings.Split(rel, string(os.PathSeparator))
	for _, part := range parts[:len(parts)-1] {
		dir = filepath.Join(dir, part)
		fi, err := os.Lstat(dir)
		if err != nil {
			break
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("illegal path in archive, %s goes through a symlink: %s", part, name)
		}
	}
	return target, nil
}

// checkLink rejects symlinks pointing outside destDir.
func checkLink(destDir, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("illegal symlink in archive: %s -> %s", target, linkname)
	}
	if !within(destDir, filepath.Join(filepath.Dir(target), linkname)) {
		return fmt.Errorf("illegal symlink in archive: %s -> %s", target, linkname)
	}
	return nil
}

func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := checkLink(destDir, target, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
