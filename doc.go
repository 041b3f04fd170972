/*
Duniter-rs is a node of the Duniter protocol written in Go. It follows the
main branch of a libre currency, maintaining its web of trust and its ledger
block after block, resolving forks as competing branches appear.

The default options follow the Ğ1 currency. A configuration file and a
variety of flags can be used to change that.

Usage:

	duniter-rs [OPTIONS]

For an up-to-date help message:

	duniter-rs --help

A history of blocks can be synchronized in bulk with --import, which reads a
YAML stream of consecutive blocks. Blocks given with --process go through
regular block processing instead, so they may be out of order or fork.

The long form of all option flags (except -C) can be specified in a
configuration file that is automatically parsed when the node starts up. By
default, the configuration file is located at ~/.duniter/duniter.conf. The
-C (--configfile) flag can be used to override this location.
*/
package main
