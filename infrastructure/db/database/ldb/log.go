package ldb

import "github.com/duniter/duniter-rs-sub003/infrastructure/logger"

var log = logger.RegisterSubSystem("LVDB")
