// Package seed embeds the default portal fixtures.
package seed

import _ "embed"

// Path is the name recorded for the embedded fixtures in the import ledger.
const Path = "embedded:fixtures.yaml"

//go:embed fixtures.yaml
var Fixtures []byte
