// Package control
// Author: momentics <momentics@gmail.com>
//
// Session configuration, a runtime key/value store with reload listeners,
// the shared metrics registry and debug probes.
//
// Config is static: pool geometry and queue depth cannot change after a
// session starts. ConfigStore carries the flattened copy for inspection and
// for values components choose to watch.
package control
