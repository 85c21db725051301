package equivalency

// Compare reports whether subject is structurally equivalent to expectation.
//
// It returns nil when they are, Mismatches listing every difference when they
// are not, and a *UsageError when the comparison itself is misconfigured.
func Compare(subject, expectation any, opts ...Option) error {
	cfg := NewConfig(opts...)
	collector := &Collector{}
	if err := CompareWith(subject, expectation, cfg, collector); err != nil {
		return err
	}
	return collector.Err()
}

// CompareWith runs a comparison with an explicit config and reporter.
// Only usage errors are returned; mismatches go to reporter.
func CompareWith(subject, expectation any, cfg *Config, reporter Reporter) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	validator := NewValidator(cfg.Steps()...)
	return validator.AssertEquality(NewRootContext(subject, expectation, cfg, reporter))
}
