package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the KISS over TCP feed using DNS-SD
 *
 * Description:
 *
 *     Ground station operators would rather pick the decoder out of a
 *     list than type in addresses and ports, so the feed is announced
 *     on the local network with mDNS.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package, so no
 *     system daemon is needed.
 */

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const DNS_SD_SERVICE = "_kiss-tnc._tcp"

// DNSSDAnnounce advertises the KISS feed on port until ctx is done.
// Failing to announce is not fatal to the decoder, so callers usually
// just log the error.
func DNSSDAnnounce(ctx context.Context, name string, port int, logger *log.Logger) error {
	if name == "" {
		name = dnsSDDefaultServiceName()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		return fmt.Errorf("DNS-SD: failed to create service: %w", svErr)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("DNS-SD: failed to create responder: %w", rpErr)
	}

	if _, addErr := rp.Add(sv); addErr != nil {
		return fmt.Errorf("DNS-SD: failed to add service: %w", addErr)
	}

	logger.Info("DNS-SD: announcing KISS TCP", "port", port, "name", name)

	go func() {
		var respondErr = rp.Respond(ctx)
		if respondErr != nil && ctx.Err() == nil {
			logger.Error("DNS-SD: responder error", "err", respondErr)
		}
	}()

	return nil
}
