package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/abramin/compatlens/internal/entity"
)

// ParseError reports a malformed line of a list. Line is zero for sources
// without line numbers.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadList parses one raw identifier per line. Surrounding whitespace is
// trimmed and blank lines are skipped. The first malformed line aborts the read
// with a *ParseError naming source and line.
func ReadList(ctx context.Context, r io.Reader, source string) ([]entity.Identifier, error) {
	var entries []entity.Identifier
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line%buildCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, err := entity.Parse(text)
		if err != nil {
			return nil, &ParseError{Source: source, Line: line, Err: err}
		}
		entries = append(entries, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return entries, nil
}
