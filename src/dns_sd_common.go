package soti

import (
	"os"
	"strings"
)

/* Get a default service name to publish. By default,
 * "SOTI on <hostname>", or just "SOTI ground station" if hostname cannot
 * be obtained.
 */
func dnsSDDefaultServiceName() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil || hostname == "" {
		return "SOTI ground station"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "SOTI on " + hostname
}
