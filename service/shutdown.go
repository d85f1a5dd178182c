package service

import (
	"sync"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/log"
)

var (
	pendingMu       sync.Mutex
	pendingHandlers []svcframe.HookFunc
)

// AddShutdownHandler registers fn with the next service that shuts down in this process. It
// is meant for code that has no *Service at hand, such as a MainFunc. Each handler runs once.
func AddShutdownHandler(fn svcframe.HookFunc) {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	pendingHandlers = append(pendingHandlers, fn)
}

func takePendingHandlers() []svcframe.HookFunc {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	h := pendingHandlers
	pendingHandlers = nil
	return h
}

// AddShutdownHandler registers fn to run when s shuts down, after the descriptor's OnShutdown
// and the handlers added to s before it.
func (s *Service) AddShutdownHandler(fn svcframe.HookFunc) {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	s.shutdownHandlers = append(s.shutdownHandlers, fn)
}

// Shutdown runs the shutdown handlers once, while all sockets are still open: the
// descriptor's OnShutdown, then those added to s, then those added through the package-level
// AddShutdownHandler. A failing handler is logged and does not stop the others.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() {
		var handlers []svcframe.HookFunc
		if s.desc.OnShutdown != nil {
			handlers = append(handlers, s.desc.OnShutdown)
		}

		s.shutdownMu.Lock()
		handlers = append(handlers, s.shutdownHandlers...)
		s.shutdownMu.Unlock()

		handlers = append(handlers, takePendingHandlers()...)

		log.Log(log.LOGLEVEL_INFO, "Service", s.name, "shutting down,", len(handlers), "handlers")

		for i, h := range handlers {
			if err := h(s.toSend, s, s.config); err != nil {
				log.Logf(log.LOGLEVEL_ERRORS, "Shutdown handler %d of %s failed: %v", i, s.name, err)
			}
		}
	})
}
