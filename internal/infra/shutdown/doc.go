// Package shutdown runs cleanup hooks when the process is asked to stop.
//
// Hooks run in reverse order of registration under a shared timeout, so a
// component registered after its dependencies is stopped before them:
//
//	h := shutdown.NewHandler(10*time.Second, shutdown.WithLogger(logger))
//	h.OnShutdown("cache", cache.CloseContext)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait() // blocks until SIGINT or SIGTERM
package shutdown
