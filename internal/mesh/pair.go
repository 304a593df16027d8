// Package mesh measures bandwidth between every ordered pair of hosts.
//
// A run has three strictly sequential phases. Every host gets a server
// started on the shared port, then every (client, server) pair with
// client != server is measured concurrently, then every server is stopped.
// Per-pair failures end up in the Matrix as Outcomes; nothing that happens
// to a single host or pair fails the run.
package mesh

// Pair is one directed measurement: Client pushes traffic to Server.
type Pair struct {
	Client string
	Server string
}

func (p Pair) String() string {
	return p.Client + " -> " + p.Server
}

// Pairs returns every ordered pair of distinct hosts, row by row in host
// order. n hosts give n*(n-1) pairs.
func Pairs(hosts []string) []Pair {
	if len(hosts) < 2 {
		return nil
	}
	pairs := make([]Pair, 0, len(hosts)*(len(hosts)-1))
	for _, client := range hosts {
		for _, server := range hosts {
			if client == server {
				continue
			}
			pairs = append(pairs, Pair{Client: client, Server: server})
		}
	}
	return pairs
}

// Dedupe drops repeated hosts, keeping the first occurrence. Returns the
// unique hosts and the ones that were dropped.
func Dedupe(hosts []string) (unique, dropped []string) {
	seen := make(map[string]bool, len(hosts))
	unique = make([]string, 0, len(hosts))
	for _, h := range hosts {
		if seen[h] {
			dropped = append(dropped, h)
			continue
		}
		seen[h] = true
		unique = append(unique, h)
	}
	return unique, dropped
}

// Outcome is the result of one pair: a throughput or a failure message,
// never both.
type Outcome struct {
	Gbps float64
	Err  string
}

// Success is a measured throughput.
func Success(gbps float64) Outcome {
	return Outcome{Gbps: gbps}
}

// Failure is an unmeasurable pair.
func Failure(msg string) Outcome {
	if msg == "" {
		msg = "unknown error"
	}
	return Outcome{Err: msg}
}

// Failed reports whether the pair could not be measured.
func (o Outcome) Failed() bool {
	return o.Err != ""
}
