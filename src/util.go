package soti

import (
	"strings"
)

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

// KISS TCP clients attached at once.
const MAX_NET_CLIENTS = 3

// Upper case with '-' turned into '_', so "pwr_set-subsystem-power" and
// "PWR_SET_SUBSYSTEM_POWER" name the same thing.
func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}
