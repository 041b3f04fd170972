package app

import (
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/util/panics"
)

var log = logger.RegisterSubSystem("DURS")
var spawn = panics.GoroutineWrapperFunc(log)
