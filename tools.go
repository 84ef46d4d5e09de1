//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They pin mockgen, which `go generate`
// invokes for contract/, so go.mod and go.sum stay in sync on a fresh checkout.
package chat_relay

import (
	_ "go.uber.org/mock/mockgen"
)
