// Package probe checks whether DNS servers actually answer queries. The
// enforcement engine will happily pin an unreachable server, that is the
// operator's call, but the agent warns up front when a configured server
// does not respond.
package probe

import (
	"net"
	"time"

	"github.com/miekg/dns"
)

// probeQuery is a name every recursive resolver can answer.
const probeQuery = "example.com."

// Result is the outcome of probing one server.
type Result struct {
	Server string
	RTT    time.Duration
	Err    error
}

// Ok reports whether the server answered.
func (r Result) Ok() bool { return r.Err == nil }

// Check sends one A query to each server and records whether it answered
// within the timeout. Servers are given as address literals; port 53 is
// assumed unless the address carries an explicit port.
func Check(servers []string, timeout time.Duration) []Result {
	results := make([]Result, 0, len(servers))

	client := &dns.Client{Timeout: timeout}
	for _, server := range servers {
		results = append(results, probeOne(client, server))
	}
	return results
}

func probeOne(client *dns.Client, server string) Result {
	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, "53")
	}

	m := new(dns.Msg)
	m.SetQuestion(probeQuery, dns.TypeA)

	_, rtt, err := client.Exchange(m, addr)
	return Result{Server: server, RTT: rtt, Err: err}
}
