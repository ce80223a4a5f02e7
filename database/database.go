// Package database embeds the profile store schema so tests and
// bootstrap tooling apply the same DDL.
package database

import _ "embed"

//go:embed schema.sql
var Schema string
