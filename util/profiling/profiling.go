package profiling

import (
	"net"
	"net/http"

	// Registers the /debug/pprof handlers on http.DefaultServeMux
	_ "net/http/pprof"

	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/util/panics"
)

// Start serves pprof on every interface at port, for the lifetime of the
// node. The root path redirects to the pprof index. Serving errors are
// logged, they never stop the node.
func Start(port string, log *logger.Logger) {
	spawn := panics.GoroutineWrapperFunc(log)
	spawn("profiling.Start", func() {
		listenAddress := net.JoinHostPort("", port)
		log.Infof("Serving pprof on %s", listenAddress)
		http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
		err := http.ListenAndServe(listenAddress, nil)
		log.Errorf("pprof server stopped: %s", err)
	})
}
