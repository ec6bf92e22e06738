// Package analyzers provides all custom static analyzers for saga-core.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/ersonp/saga-core/tools/saga-lint/analyzers/loopcall"
	"github.com/ersonp/saga-core/tools/saga-lint/analyzers/maplookup"
	"github.com/ersonp/saga-core/tools/saga-lint/analyzers/nestedloop"
	"github.com/ersonp/saga-core/tools/saga-lint/analyzers/regexloop"
	"github.com/ersonp/saga-core/tools/saga-lint/analyzers/stringconcat"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		loopcall.Analyzer,
		maplookup.Analyzer,
		nestedloop.Analyzer,
		regexloop.Analyzer,
		stringconcat.Analyzer,
	}
}
