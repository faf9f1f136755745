//go:build tools

// Package tools pins the code generators used by go:generate directives:
// enumer for the Level and State enums and mockgen for the interface mocks.
package tools

import (
	_ "github.com/dmarkham/enumer"
	_ "go.uber.org/mock/mockgen"
)
