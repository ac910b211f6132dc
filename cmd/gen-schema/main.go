// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Command gen-schema writes the JSON Schemas of the API request bodies.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/whisperbox/whisperbox/internal/web"
)

func main() {
	outDir := filepath.Join("schemas", "api")
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	written, err := generate(outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schemas: %v\n", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
}

// generate writes one <endpoint>.schema.json per request body into outDir
// and returns the written paths in name order.
func generate(outDir string) ([]string, error) {
	schemas, err := web.RequestSchemas()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	written := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(outDir, name+".schema.json")
		if err := os.WriteFile(path, schemas[name], 0o600); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
