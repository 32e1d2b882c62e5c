// Package dnsproof performs the TXT lookups that back public suffix
// list ownership proofs.
package dnsproof

import (
	"context"
	"fmt"
	"strings"
	"time"

	mdns "github.com/miekg/dns"

	"github.com/haukened/psl-verify/internal/psl/domain"
	"github.com/haukened/psl-verify/internal/psl/services/verifier"
)

const (
	errAllServersFailed = "all %d nameservers failed: %w"
	resolvConfPath      = "/etc/resolv.conf"
)

// ExchangeFunc sends one DNS message to the given server address and
// returns the response. Injected in tests.
type ExchangeFunc func(ctx context.Context, msg *mdns.Msg, server string) (*mdns.Msg, time.Duration, error)

// Resolver looks up proof TXT records using github.com/miekg/dns. It
// queries the configured nameservers in order and classifies the
// response into a ProofAnswer; only transport-level failure of every
// server is surfaced as an error.
type Resolver struct {
	servers  []string
	exchange ExchangeFunc
}

// Options defines configuration parameters for the proof resolver.
type Options struct {
	// Servers is the nameserver list in ip:port form. Empty means the
	// system resolvers from /etc/resolv.conf, with public DNS as the
	// last fallback.
	Servers []string

	// Timeout bounds each individual query. Defaults to 5 seconds.
	Timeout time.Duration

	// Exchange overrides the wire exchange, for testing.
	Exchange ExchangeFunc
}

// New creates a proof resolver with the given options.
func New(opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if len(opts.Servers) == 0 {
		opts.Servers = systemNameservers()
	}
	exchange := opts.Exchange
	if exchange == nil {
		client := &mdns.Client{Timeout: opts.Timeout}
		exchange = func(ctx context.Context, msg *mdns.Msg, server string) (*mdns.Msg, time.Duration, error) {
			return client.ExchangeContext(ctx, msg, server)
		}
	}
	return &Resolver{
		servers:  opts.Servers,
		exchange: exchange,
	}
}

// systemNameservers reads the resolver list from /etc/resolv.conf,
// falling back to well-known public DNS servers.
func systemNameservers() []string {
	config, err := mdns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(config.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	servers := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		if !strings.Contains(s, ":") {
			s = s + ":" + config.Port
		}
		servers = append(servers, s)
	}
	return servers
}

// LookupTXT queries TXT records at name and classifies the outcome.
//
// Servers are tried in order. A definitive response (NOERROR or
// NXDOMAIN) from any server ends the loop. Servers answering SERVFAIL,
// REFUSED or another error rcode count as unusable; when every server
// is unusable the answer is ProofNoNameservers. When every server fails
// at the transport level (unreachable, timeout) an error is returned,
// which callers treat as fatal.
func (r *Resolver) LookupTXT(ctx context.Context, name string) (domain.ProofAnswer, error) {
	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(name), mdns.TypeTXT)
	msg.RecursionDesired = true

	var lastErr error
	badRcode := false

	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return domain.ProofAnswer{}, err
		}

		resp, _, err := r.exchange(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("server %s: %w", server, err)
			continue
		}

		switch resp.Rcode {
		case mdns.RcodeSuccess:
			records := txtStrings(resp)
			if len(records) == 0 {
				return domain.ProofAnswer{Status: domain.ProofNoAnswer}, nil
			}
			return domain.ProofAnswer{Status: domain.ProofAnswered, Records: records}, nil
		case mdns.RcodeNameError:
			return domain.ProofAnswer{Status: domain.ProofNXDomain}, nil
		default:
			// SERVFAIL, REFUSED and friends; try the next server
			badRcode = true
		}
	}

	if badRcode {
		return domain.ProofAnswer{Status: domain.ProofNoNameservers}, nil
	}
	return domain.ProofAnswer{}, fmt.Errorf(errAllServersFailed, len(r.servers), lastErr)
}

// txtStrings extracts TXT values from the answer section, joining the
// character-strings of each record.
func txtStrings(resp *mdns.Msg) []string {
	var records []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	return records
}

var _ verifier.ProofResolver = (*Resolver)(nil)
