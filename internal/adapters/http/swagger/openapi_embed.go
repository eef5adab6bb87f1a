// Package swagger serves the OpenAPI document of the HTTP API.
package swagger

import _ "embed"

// OpenAPI is the embedded OpenAPI document served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
