// Package catalogs provides the embedded product catalog bundled with the site.
package catalogs

import _ "embed"

// ProductsJSON is the bundled G&T product catalog, embedded at build time.
//
//go:embed products.json
var ProductsJSON []byte
