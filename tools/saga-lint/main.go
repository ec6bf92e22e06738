// saga-lint is a custom static analyzer for saga-core performance patterns.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/ersonp/saga-core/tools/saga-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
