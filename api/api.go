// Package api embeds the HTTP contract served at /openapi.yml and enforced by the request validator.
package api

import _ "embed"

//go:embed openapi.yml
var Spec []byte
