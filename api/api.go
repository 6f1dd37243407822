// Package api carries the OpenAPI document served at /api/swagger.json
package api

import _ "embed"

// SwaggerJSON is the OpenAPI 2.0 description of the REST interface
//
//go:embed swagger.json
var SwaggerJSON []byte
