package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSymbol matches any *DuplicateSymbolError.
	ErrDuplicateSymbol = errors.New("duplicate symbol")

	// ErrUnknownSymbol matches any *UnknownSymbolError.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrSealed is returned when registering after the table was sealed.
	ErrSealed = errors.New("symbol table sealed")
)

// DuplicateSymbolError reports a second registration of a symbol name.
type DuplicateSymbolError struct {
	Name string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate symbol %q", e.Name)
}

// Is matches ErrDuplicateSymbol.
func (e *DuplicateSymbolError) Is(target error) bool {
	return target == ErrDuplicateSymbol
}

// UnknownSymbolError reports a symbol with no bound handler.
type UnknownSymbolError struct {
	Name string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q", e.Name)
}

// Is matches ErrUnknownSymbol.
func (e *UnknownSymbolError) Is(target error) bool {
	return target == ErrUnknownSymbol
}
