// Package health reports whether the parts an engine depends on are usable:
// the state store, the definition files and the lookup caches.
//
// A Checker reports one component as Healthy, Degraded or Unhealthy. An
// Aggregator runs every registered checker in parallel under one deadline
// and folds the results into an overall status.
//
//	agg := health.NewAggregator(health.Config{Timeout: 5 * time.Second})
//	agg.Register(health.Func("state", checkStore))
//	reports := agg.CheckAll(ctx)
//	if health.Overall(reports) == health.StatusUnhealthy {
//	    ...
//	}
package health
