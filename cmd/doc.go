// Package cmd provides the command-line interface for markup.
//
// # Available Commands
//
//   - render: Render a text template or a YAML/JSON document
//   - check: List the markers of a file and report unknown pipes
//   - pipes: List the registered pipes and aliases
//   - preview: Serve a rendered page with live reload
//   - version: Show build information
//
// # Command Examples
//
//	// Render a document with data
//	markup render page.yml --data data.json
//
//	// Let bindings stored in the document win over the data file
//	markup render page.yml -d data.json --prioritize-stored
//
//	// Re-render on every change
//	markup render mail.txt -d user.yml --watch -o mail.out
//
//	// Check markers as JSON
//	markup check page.yml --format json
//
//	// Serve with live reload
//	markup preview page.yml -d data.yml --port 3000
package cmd
