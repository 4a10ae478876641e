package scoring

// Config parameterizes the checker catalogue's thresholds.
type Config struct {
	SlowQueryThresholdMs    int64
	ActualImpactRowThreshold int64
	ErrorRateSpikeThreshold int
	WindowCapacity          int
}

// NewCatalogue builds the fixed post-execution checker catalogue in stable
// declared order, matching the examples enumerated in spec §4.9.
func NewCatalogue(cfg Config) ([]Checker, error) {
	window, err := NewWindowStore(cfg.WindowCapacity)
	if err != nil {
		return nil, err
	}
	return []Checker{
		&SlowQueryChecker{ThresholdMs: cfg.SlowQueryThresholdMs},
		&DeadlockChecker{},
		&SyntaxErrorChecker{},
		&GenericErrorChecker{},
		&ActualImpactNoWhereChecker{RowThreshold: cfg.ActualImpactRowThreshold},
		&ErrorRateSpikeChecker{Window: window, Threshold: cfg.ErrorRateSpikeThreshold},
	}, nil
}
