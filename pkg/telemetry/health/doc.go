// Package health serves liveness, readiness and version endpoints.
//
//	checker := health.New(0)
//	checker.Register("rules", func(ctx context.Context) error {
//	    if len(manager.Rules()) == 0 {
//	        return errors.New("no flow rules loaded")
//	    }
//	    return nil
//	})
//	checker.Mount(mux, health.NewVersionInfo(version, commit, buildTime))
//
// /health answers 200 while the process runs. /ready runs every registered
// check concurrently and answers 503 if any fails or times out.
package health
