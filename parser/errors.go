// Package parser turns the composition text format into an aulos.Composition.
package parser

import "fmt"

// ParseError reports a malformed composition at a specific line and column.
// Recovery is not attempted: a ParseError always means the whole parse
// failed.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("(%d:%d) %s", e.Line, e.Column, e.Message)
}
