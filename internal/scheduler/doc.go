// Package scheduler runs compiled jobs against the actuator registry.
//
// Jobs live in two stores. The persistent store holds the drying timetable
// (phases, the shutdown reset, interval rules) and survives restarts: on
// Recover a non-empty store is trusted as-is, so a restart never re-runs or
// duplicates work. The ephemeral store holds process-local jobs such as the
// monitor listing.
//
// Lifecycle:
//
//	s := scheduler.New(cfg, registry, persistent, jobstore.NewMemoryStore())
//	if err := s.Recover(ctx, spec); err != nil {
//	    return err
//	}
//	s.Start(ctx)
//	defer s.Stop(context.Background())
//
// Every fired job runs on its own goroutine. One-shot jobs are removed from
// their store once they have fired, whether they succeeded or not. Recurring
// jobs are re-armed before they run and keep running after the shutdown job
// until Stop is called.
package scheduler
