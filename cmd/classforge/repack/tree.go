// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repack

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// treeFile is one entry of a class tree: a file under a directory or a
// member of a jar.
type treeFile struct {
	// path is slash-separated and relative to the tree root. Directory
	// entries end in "/".
	path     string
	data     []byte
	mode     fs.FileMode
	modified time.Time

	// method is the zip compression method used when writing an
	// archive.
	method uint16
}

func (f *treeFile) isDir() bool {
	return strings.HasSuffix(f.path, "/")
}

// isClass reports whether f is a class file.
func (f *treeFile) isClass() bool {
	return !f.isDir() && strings.HasSuffix(f.path, ".class")
}

// module returns the internal class name a class loader would ask for.
func (f *treeFile) module() string {
	return strings.TrimSuffix(f.path, ".class")
}

// isArchive reports whether name is a jar or zip by extension.
func isArchive(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jar", ".zip":
		return true
	default:
		return false
	}
}

// readTree loads every entry of a directory or archive.
func readTree(root string) ([]treeFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return readDirectory(root)
	}
	if !isArchive(root) {
		return nil, fmt.Errorf("%s is neither a directory nor a .jar or .zip archive", root)
	}
	return readArchive(root)
}

func readDirectory(root string) ([]treeFile, error) {
	var files []treeFile
	err := filepath.WalkDir(root, func(filePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if filePath == root {
			return nil
		}
		relative, err := filepath.Rel(root, filePath)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		file := treeFile{
			path:     filepath.ToSlash(relative),
			mode:     info.Mode(),
			modified: info.ModTime(),
			method:   zip.Deflate,
		}
		switch {
		case entry.IsDir():
			file.path += "/"
		case info.Mode().IsRegular():
			file.data, err = os.ReadFile(filePath)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unsupported file type %s", filePath, info.Mode().Type())
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	return files, nil
}

func readArchive(archivePath string) ([]treeFile, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer reader.Close()

	files := make([]treeFile, 0, len(reader.File))
	for _, member := range reader.File {
		if !fs.ValidPath(strings.TrimSuffix(member.Name, "/")) {
			return nil, fmt.Errorf("%s: unsafe member path %q", archivePath, member.Name)
		}
		file := treeFile{
			path:     member.Name,
			mode:     member.Mode(),
			modified: member.Modified,
			method:   member.Method,
		}
		if !file.isDir() {
			file.data, err = readMember(member)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", archivePath, err)
			}
		}
		files = append(files, file)
	}
	return files, nil
}

func readMember(member *zip.File) ([]byte, error) {
	content, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", member.Name, err)
	}
	defer content.Close()
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", member.Name, err)
	}
	return data, nil
}

// writeTree writes files to a directory, or to an archive when root
// has a .jar or .zip extension.
func writeTree(root string, files []treeFile) error {
	if isArchive(root) {
		return writeArchive(root, files)
	}
	return writeDirectory(root, files)
}

func writeDirectory(root string, files []treeFile) error {
	for _, file := range files {
		target := filepath.Join(root, filepath.FromSlash(file.path))
		if file.isDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		perm := file.mode.Perm()
		if perm == 0 {
			perm = 0o644
		}
		if err := os.WriteFile(target, file.data, perm); err != nil {
			return err
		}
	}
	return nil
}

func writeArchive(archivePath string, files []treeFile) error {
	if directory := filepath.Dir(archivePath); directory != "." {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return err
		}
	}
	output, err := os.Create(archivePath)
	if err != nil {
		return err
	}

	writer := zip.NewWriter(output)
	for _, file := range files {
		header := &zip.FileHeader{
			Name:     file.path,
			Method:   file.method,
			Modified: file.modified,
		}
		if file.isDir() {
			header.Method = zip.Store
		}
		if file.mode != 0 {
			header.SetMode(file.mode)
		}
		entry, err := writer.CreateHeader(header)
		if err != nil {
			output.Close()
			return fmt.Errorf("writing %s: %w", file.path, err)
		}
		if _, err := entry.Write(file.data); err != nil {
			output.Close()
			return fmt.Errorf("writing %s: %w", file.path, err)
		}
	}
	if err := writer.Close(); err != nil {
		output.Close()
		return fmt.Errorf("finishing %s: %w", archivePath, err)
	}
	return output.Close()
}
