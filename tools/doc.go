// Package tools provides ready-made tool definitions for the invoke
// registry: a calculator, sandboxed file access, HTTP fetch, and file
// search. Each constructor returns an [invoke.Definition] ready to
// register.
package tools
