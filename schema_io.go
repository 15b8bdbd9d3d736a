// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vints

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/solidcoredata/vints/internal/schema"
)

// schema.txt is one column per line: "name COLUMN_TYPE_X", per
// SPEC_FULL.md §6's on-disk layout.
const (
	columnTypeInt32   = "COLUMN_TYPE_INT32"
	columnTypeFloat64 = "COLUMN_TYPE_FLOAT64"
	columnTypeString  = "COLUMN_TYPE_STRING"
)

func columnTypeName(t schema.Type) (string, error) {
	switch t {
	case schema.Int32:
		return columnTypeInt32, nil
	case schema.Float64:
		return columnTypeFloat64, nil
	case schema.String:
		return columnTypeString, nil
	default:
		return "", fmt.Errorf("vints: unknown column type %v", t)
	}
}

func parseColumnType(s string) (schema.Type, error) {
	switch s {
	case columnTypeInt32:
		return schema.Int32, nil
	case columnTypeFloat64:
		return schema.Float64, nil
	case columnTypeString:
		return schema.String, nil
	default:
		return 0, fmt.Errorf("vints: unknown column type %q", s)
	}
}

func writeSchemaFile(path string, sch *schema.Schema) error {
	var b strings.Builder
	for _, col := range sch.Columns {
		typeName, err := columnTypeName(col.Type)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s %s\n", col.Name, typeName)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("vints: writing %s: %w", path, err)
	}
	return nil
}

func readSchemaFile(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vints: reading %s: %w", path, err)
	}
	defer f.Close()

	var cols []schema.Column
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("vints: %s: malformed line %q", path, line)
		}
		typ, err := parseColumnType(fields[1])
		if err != nil {
			return nil, fmt.Errorf("vints: %s: %w", path, err)
		}
		cols = append(cols, schema.Column{Name: fields[0], Type: typ})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vints: reading %s: %w", path, err)
	}
	return schema.New(cols)
}
