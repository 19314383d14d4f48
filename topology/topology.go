// Package topology parses the static network topology file describing
// which overlay nodes are directly connected and at what link cost, and
// resolves hostnames to the low-octet node IDs used throughout the
// distance-vector routing plane.
package topology

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

var (
	ErrMalformedLine  = errors.New("topology: malformed line")
	ErrUnresolvedHost = errors.New("topology: could not resolve host")
	ErrNoSelfNode     = errors.New("topology: no self (localhost) entry found")
)

// Link is one undirected edge between two nodes at a given cost, as read
// from a single topology.dat line ("hostA hostB cost").
type Link struct {
	HostA, HostB string
	NodeA, NodeB uint32
	Cost         uint32
}

// Table is the parsed topology: the caller's own node ID plus every
// neighbor directly reachable and its link cost.
type Table struct {
	myNodeID  uint32
	myHost    string
	neighbors map[uint32]uint32 // nodeID -> cost
	hosts     map[uint32]string // nodeID -> hostname, for dialing
	links     []Link
}

// MyNodeID returns the node ID of the local host, the low octet of its
// resolved IPv4 address.
func (t *Table) MyNodeID() uint32 { return t.myNodeID }

// MyHost returns the hostname of the local node as written in the
// topology file (commonly "localhost").
func (t *Table) MyHost() string { return t.myHost }

// Neighbors returns the set of node IDs directly reachable from this
// node, with their link costs. The returned map must not be mutated.
func (t *Table) Neighbors() map[uint32]uint32 { return t.neighbors }

// Cost returns the direct link cost to neighbor, or (0, false) if
// neighbor is not a direct neighbor of this node.
func (t *Table) Cost(neighbor uint32) (cost uint32, ok bool) {
	cost, ok = t.neighbors[neighbor]
	return cost, ok
}

// HostFor returns the dialable hostname for nodeID, as seen anywhere in
// the topology file.
func (t *Table) HostFor(nodeID uint32) (host string, ok bool) {
	host, ok = t.hosts[nodeID]
	return host, ok
}

// Nodes returns every node ID mentioned anywhere in the topology file,
// including nodes not directly adjacent to this one.
func (t *Table) Nodes() []uint32 {
	seen := make(map[uint32]bool)
	for _, l := range t.links {
		seen[l.NodeA] = true
		seen[l.NodeB] = true
	}
	out := make([]uint32, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// Links returns every edge parsed from the topology file, including
// edges not touching this node.
func (t *Table) Links() []Link { return t.links }

// Parse reads a topology.dat file of "hostA hostB cost" lines, one edge
// per line. One of the hosts on each of this node's own edges is
// expected to read "localhost", meaning the local machine; see
// NodeIDFromHost for the ID resolution rule.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{
		neighbors: make(map[uint32]uint32),
		hosts:     make(map[uint32]string),
	}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedLine, lineNo, line)
		}
		hostA, hostB := fields[0], fields[1]
		cost, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad cost %q", ErrMalformedLine, lineNo, fields[2])
		}

		idA, err := NodeIDFromHost(hostA)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrUnresolvedHost, lineNo, hostA, err)
		}
		idB, err := NodeIDFromHost(hostB)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrUnresolvedHost, lineNo, hostB, err)
		}

		t.hosts[idA] = hostA
		t.hosts[idB] = hostB
		t.links = append(t.links, Link{HostA: hostA, HostB: hostB, NodeA: idA, NodeB: idB, Cost: uint32(cost)})

		switch {
		case hostA == "localhost":
			t.myNodeID, t.myHost = idA, hostA
			t.neighbors[idB] = uint32(cost)
		case hostB == "localhost":
			t.myNodeID, t.myHost = idB, hostB
			t.neighbors[idA] = uint32(cost)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if t.myHost == "" {
		return nil, ErrNoSelfNode
	}
	return t, nil
}

// NodeIDFromHost resolves host to the node ID used by the routing plane:
// the low (least significant) octet of its first resolved IPv4 address.
// "localhost" resolves to the first non-loopback IPv4 address of a local
// network interface, matching the original topology parser's convention
// that the node's own topology-file entry names itself "localhost" yet
// must still produce the same node ID its neighbors compute for it.
func NodeIDFromHost(host string) (uint32, error) {
	if host == "localhost" {
		return localNodeID()
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return 0, err
	}
	for _, a := range addrs {
		ip := net.ParseIP(a).To4()
		if ip != nil {
			return uint32(ip[3]), nil
		}
	}
	return 0, fmt.Errorf("%s: no IPv4 address", host)
}

func localNodeID() (uint32, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			ip4 := ip.To4()
			if ip4 != nil {
				return uint32(ip4[3]), nil
			}
		}
	}
	return 0, errors.New("topology: no non-loopback IPv4 interface found")
}
