package blockapplicator

import (
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
)

var log = logger.RegisterSubSystem("APLY")
