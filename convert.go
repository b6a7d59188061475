// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Convert reads a console BSP from src and writes the desktop BSP to dst.
func Convert(dst io.WriteSeeker, src io.ReadSeeker, opts ...Option) (*Layout, error) {
	doc, err := ReadConsole(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("read console BSP: %w", err)
	}

	layout, err := WriteDocument(dst, doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("write desktop BSP: %w", err)
	}

	return layout, nil
}

// ConvertFile converts the console BSP at srcPath and saves the result to
// dstPath. The output is built in memory and written through a temporary
// file in the destination directory, so dstPath is either replaced whole or
// left untouched.
func ConvertFile(srcPath, dstPath string, opts ...Option) (*Layout, error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer in.Close()

	var out Buffer
	layout, err := Convert(&out, in, opts...)
	if err != nil {
		return nil, err
	}

	if err := saveFile(dstPath, out.Bytes()); err != nil {
		return nil, err
	}

	return layout, nil
}

// OutputPath returns the default output name for a console BSP:
// "map.360.bsp" becomes "map.bsp", any other name gets a "_converted.bsp"
// suffix.
func OutputPath(input string) string {
	switch {
	case strings.HasSuffix(input, ".360.bsp"):
		return strings.TrimSuffix(input, ".360.bsp") + ".bsp"
	case strings.HasSuffix(input, ".bsp"):
		return strings.TrimSuffix(input, ".bsp") + "_converted.bsp"
	default:
		return input + "_converted.bsp"
	}
}

// saveFile writes data to a temp file next to path and moves it into place.
func saveFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "bsp_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	// Move temp file to final path
	if err := os.Rename(tempPath, path); err != nil {
		if err := copyFile(tempPath, path); err != nil {
			os.Remove(tempPath)
			return fmt.Errorf("save file: %w", err)
		}
		os.Remove(tempPath)
	}

	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
