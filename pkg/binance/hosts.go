package binance

import (
	"fmt"
	"math/rand"
	"sync"
)

// publicHostIDs are the api{N}.binance.com hosts known to serve the spot API.
var publicHostIDs = []int{1, 2, 3}

// hostRing is an ordered list of API base URLs. The first entry is the
// current host; a failing host is moved to the back.
type hostRing struct {
	mu    sync.Mutex
	hosts []string
}

func newHostRing(hosts []string) *hostRing {
	return &hostRing{hosts: append([]string(nil), hosts...)}
}

func publicHosts(rnd *rand.Rand) []string {
	hosts := make([]string, 0, len(publicHostIDs))
	for _, id := range publicHostIDs {
		hosts = append(hosts, fmt.Sprintf("https://api%d.binance.com/api/v3/", id))
	}
	rnd.Shuffle(len(hosts), func(i, j int) { hosts[i], hosts[j] = hosts[j], hosts[i] })
	return hosts
}

func (r *hostRing) current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hosts[0]
}

func (r *hostRing) rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hosts) < 2 {
		return
	}
	r.hosts = append(r.hosts[1:], r.hosts[0])
}

func (r *hostRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hosts)
}
