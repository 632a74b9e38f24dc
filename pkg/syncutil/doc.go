// Package syncutil swaps in lock-order checking mutexes when built with the
// deadlock tag.
package syncutil
