package rules

import (
	"github.com/canonica-labs/canonica/internal/accesscontrol"
)

// Config holds the per-checker configuration recognized by the catalogue,
// mirroring the "Validator" section of the configuration surface.
type Config struct {
	BlacklistFields           []string
	WhitelistRequiredFields   map[string][]string
	EnforceForAllQueries      bool
	DeepPaginationOffset      int
	LargePageSizeLimit        int
	UniqueKeyColumns          []string
	DangerousFunctions        []string
	DeniedTables              []string
	ReadOnlyTables            []string
	TableWhitelistPatterns    []string
	Disabled                  map[string]bool
}

// NewCatalogue builds the full checker catalogue in a stable,
// configuration-declared order: safety, pagination, injection surface,
// dangerous ops, access control — matching the grouping in the checker
// catalogue design.
func NewCatalogue(cfg Config) []Checker {
	registry := accesscontrol.NewRegistry(cfg.DeniedTables, cfg.ReadOnlyTables, cfg.TableWhitelistPatterns)
	enabled := func(name string) bool { return !cfg.Disabled[name] }

	paginationCfg := PaginationConfig{
		EnforceForAllQueries: cfg.EnforceForAllQueries,
		DeepOffsetThreshold:  cfg.DeepPaginationOffset,
		LargePageSizeLimit:   cfg.LargePageSizeLimit,
		UniqueKeyColumns:     cfg.UniqueKeyColumns,
		AccessControl:        registry,
	}

	return []Checker{
		// Safety
		&MissingWhereChecker{Enabled: enabled("MissingWhere")},
		&DummyConditionChecker{Enabled: enabled("DummyCondition")},
		&BlacklistFieldChecker{Enabled: enabled("BlacklistField"), Fields: cfg.BlacklistFields},
		&WhitelistFieldChecker{Enabled: enabled("WhitelistField"), RequiredByTable: cfg.WhitelistRequiredFields},

		// Pagination
		&NoPaginationChecker{Enabled: enabled("NoPagination"), Config: paginationCfg},
		&NoConditionPaginationChecker{Enabled: enabled("NoConditionPagination")},
		&LogicalPaginationChecker{Enabled: enabled("LogicalPagination")},
		&DeepPaginationChecker{Enabled: enabled("DeepPagination"), OffsetThreshold: cfg.DeepPaginationOffset},
		&LargePageSizeChecker{Enabled: enabled("LargePageSize"), Limit: cfg.LargePageSizeLimit},
		&MissingOrderByChecker{Enabled: enabled("MissingOrderBy")},

		// Injection surface
		&MultiStatementChecker{Enabled: enabled("MultiStatement")},
		&SetOperationChecker{Enabled: enabled("SetOperation")},
		&SqlCommentChecker{Enabled: enabled("SqlComment")},
		&IntoOutfileChecker{Enabled: enabled("IntoOutfile")},

		// Dangerous ops
		&DdlOperationChecker{Enabled: enabled("DdlOperation")},
		&DangerousFunctionChecker{Enabled: enabled("DangerousFunction"), Functions: cfg.DangerousFunctions},
		&CallStatementChecker{Enabled: enabled("CallStatement")},

		// Access control
		&MetadataStatementChecker{Enabled: enabled("MetadataStatement")},
		&SetStatementChecker{Enabled: enabled("SetStatement")},
		&DeniedTableChecker{Enabled: enabled("DeniedTable"), Registry: registry},
		&ReadOnlyTableChecker{Enabled: enabled("ReadOnlyTable"), Registry: registry},
	}
}
