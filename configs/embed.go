// Package configs provides embedded configuration templates for codeintel.
//
// How Configuration Templates Work:
//
// Templates are embedded at build time using Go's //go:embed directive.
// This ensures they are available in ALL distributions:
//   - Source builds (go install)
//   - Binary releases
//
// The templates are exported as strings for callers that want to write a
// starting config file; the codeintel CLI itself has no command that
// writes them.
//
// Template files:
//   - project-config.example.yaml: project-specific settings (paths, retrieval, analysis)
//   - user-config.example.yaml: machine-specific settings (store backends, cache sizes)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/codeintel/config.yaml)
//  3. Project config (.codeintel.yaml)
//  4. Environment variables (CODEINTEL_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
// Changes will be embedded in the next build.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Read from: ~/.config/codeintel/config.yaml
// Contains: machine-specific settings like vector/keyword backend choice and
// SQLite cache size.
// Use case: settings that apply to every project indexed on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Read from: .codeintel.yaml in the project root
// Contains: project-specific settings like index.exclude_patterns and
// retrieval tuning.
// Use case: settings that are version-controlled with the project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
