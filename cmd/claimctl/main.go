// Command claimctl operates a claimflow deployment: it serves the HTTP API, applies
// migrations, exports payment remittance workbooks and provisions users.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
