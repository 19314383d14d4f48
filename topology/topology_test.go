package topology_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/srtnet/srtnet/topology"
)

const sample = `
# sample topology
localhost 10.0.0.2 10
10.0.0.2 10.0.0.3 5
localhost 10.0.0.3 20
`

func TestParse(t *testing.T) {
	tbl, err := topology.Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.MyHost() != "localhost" {
		t.Fatalf("MyHost() = %q", tbl.MyHost())
	}
	nbrs := tbl.Neighbors()
	if len(nbrs) != 2 {
		t.Fatalf("expected 2 neighbors, got %d: %+v", len(nbrs), nbrs)
	}
	nodes := tbl.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 distinct nodes, got %d: %v", len(nodes), nodes)
	}
}

func TestParseMalformedLine(t *testing.T) {
	_, err := topology.Parse(strings.NewReader("localhost onlyonefield\n"))
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestParseMissingSelf(t *testing.T) {
	_, err := topology.Parse(strings.NewReader("10.0.0.2 10.0.0.3 1\n"))
	if !errors.Is(err, topology.ErrUnresolvedHost) && !errors.Is(err, topology.ErrNoSelfNode) {
		t.Fatalf("expected a resolution or self-node error, got %v", err)
	}
}
