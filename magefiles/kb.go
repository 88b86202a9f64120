//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// KB groups targets that run the CLI against the working collection.
type KB mg.Namespace

// sourcesDir holds the books imported by KB:Import.
const sourcesDir = "data/sources"

func kb(args ...string) error {
	mg.Deps(Build)
	return sh.RunV(binPath(), args...)
}

// Import imports every PDF in data/sources into the collection.
func (KB) Import() error {
	pdfs, err := filepath.Glob(filepath.Join(sourcesDir, "*.pdf"))
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		return nil
	}
	return kb(append([]string{"import"}, pdfs...)...)
}

// Repair corrects hexagram glyphs from the symbol table.
func (KB) Repair() error { return kb("repair") }

// Reorganize orders the collection along the study timeline.
func (KB) Reorganize() error { return kb("reorganize") }

// Coverage prints the coverage report.
func (KB) Coverage() error { return kb("coverage") }

// Index rebuilds the search index.
func (KB) Index() error { return kb("index", "build") }

// Refresh runs the full maintenance sequence.
func (KB) Refresh() {
	mg.SerialDeps(KB.Import, KB.Repair, KB.Reorganize, KB.Index, KB.Coverage)
}
