// Package pagination implements the pagination plugin detector (C4): given a
// SqlContext plus two optional collaborator references, classify the
// statement's pagination posture as NONE, PHYSICAL, or LOGICAL.
package pagination

import (
	"regexp"
	"strings"

	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// PluginRef names a pagination-plugin collaborator abstractly by class-name
// hint, matched by substring only — never type-asserted, per the design
// note that plugin detection must remain a soft signal.
type PluginRef struct {
	ClassNameHint string
	Present       bool
}

var knownPaginationPlugins = []string{
	"PageHelper", "PageInterceptor", "PaginationInterceptor", "MybatisPlusInterceptor",
}

// paginationFallback scans raw SQL text for pagination keywords not always
// exposed by the AST on every statement kind, mirroring the gateway's
// regex-based text-search fallback for constructs outside the structured
// walk. O(n) in SQL length; acceptable overhead per the detector's own
// conservativeness requirement.
var paginationFallback = regexp.MustCompile(`(?i)\b(LIMIT|TOP|FETCH\s+(FIRST|NEXT)|ROWNUM|ROW_NUMBER)\b`)

// HasLimit reports whether the statement exhibits a physical LIMIT/TOP/FETCH
// /ROWNUM clause, preferring the structured AST field and falling back to a
// text scan for statement kinds that do not carry Pagination.
func HasLimit(stmt *sqlast.ParsedStatement) bool {
	if stmt.Pagination != nil && stmt.Pagination.HasLimit {
		return true
	}
	return paginationFallback.MatchString(stmt.RawSQL)
}

// HasPageParam reports whether hint describes a non-default pagination
// bounds object supplied by the host at runtime.
func HasPageParam(hint *validate.PaginationHint) bool {
	return hint != nil && !hint.IsDefault
}

// HasPlugin inspects the provided collaborator references by class-name
// substring against the known pagination interceptor names.
func HasPlugin(refs ...PluginRef) bool {
	for _, ref := range refs {
		if !ref.Present {
			continue
		}
		for _, known := range knownPaginationPlugins {
			if strings.Contains(ref.ClassNameHint, known) {
				return true
			}
		}
	}
	return false
}

// Classify applies the C4 decision table.
func Classify(hasPageParam, hasLimit, hasPlugin bool) validate.PaginationType {
	switch {
	case hasPageParam && !hasLimit && !hasPlugin:
		return validate.PaginationLogical
	case hasLimit:
		return validate.PaginationPhysical
	case hasPageParam && !hasLimit && hasPlugin:
		return validate.PaginationPhysical
	default:
		return validate.PaginationNone
	}
}

// Detect runs the full C4 procedure over a parsed statement, runtime hint,
// and plugin collaborator references, and returns the classification.
func Detect(stmt *sqlast.ParsedStatement, hint *validate.PaginationHint, refs ...PluginRef) validate.PaginationType {
	hasLimit := HasLimit(stmt)
	hasPageParam := HasPageParam(hint)
	hasPlugin := HasPlugin(refs...)
	return Classify(hasPageParam, hasLimit, hasPlugin)
}
