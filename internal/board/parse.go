package board

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// NoCardMarker is the board-file token for a position with no card. It
// matches the view serialization of a removed cell, so it is not a legal
// card label.
const NoCardMarker = "none"

// Parse reads a board definition: a ROWSxCOLS header line followed by
// rows*cols lines in row-major order, each a card label or NoCardMarker.
func Parse(r io.Reader) (*Board, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read board: %w", err)
		}
		return nil, fmt.Errorf("empty board definition")
	}

	header := strings.TrimSpace(scanner.Text())
	dims := strings.Split(header, "x")
	if len(dims) != 2 {
		return nil, fmt.Errorf("first line must be ROWSxCOLS, got %q", header)
	}
	rows, err := strconv.Atoi(dims[0])
	if err != nil {
		return nil, fmt.Errorf("invalid row count %q", dims[0])
	}
	cols, err := strconv.Atoi(dims[1])
	if err != nil {
		return nil, fmt.Errorf("invalid column count %q", dims[1])
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("board dimensions must be positive, got %dx%d", rows, cols)
	}

	labels := make([]string, 0, rows*cols)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == NoCardMarker {
			labels = append(labels, "")
			continue
		}
		if err := checkLabel(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", len(labels)+2, err)
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}
	if len(labels) != rows*cols {
		return nil, fmt.Errorf("board %dx%d needs %d cards, got %d", rows, cols, rows*cols, len(labels))
	}

	return New(rows, cols, labels)
}

// ParseFile loads a board definition from a file.
func ParseFile(path string) (*Board, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open board file: %w", err)
	}
	defer f.Close()

	b, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("board file %s: %w", path, err)
	}
	return b, nil
}
