package depgraph

import (
	"sort"

	"github.com/relay-dev/relay/internal/lockstore"
)

// Lock visibility kinds on an annotated node.
const (
	LockDirect   = "DIRECT"
	LockNeighbor = "NEIGHBOR"
)

// LockAnnotation is the lock state overlaid on one node for presentation.
type LockAnnotation struct {
	Holder   string `json:"holder"`
	Mode     string `json:"mode"`
	LockType string `json:"lock_type"` // DIRECT or NEIGHBOR
	Message  string `json:"message,omitempty"`
}

// Node is a graph node with its current lock overlay, if any.
type Node struct {
	Path string          `json:"path"`
	Lock *LockAnnotation `json:"lock,omitempty"`
}

// View is the annotated graph consumed by presentation endpoints.
type View struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Overlay annotates every node of g with the lock state in snapshot: a
// locked file gets a DIRECT annotation, its neighbors get NEIGHBOR ones.
// When a file is both directly locked and adjacent to a locked file, DIRECT
// wins. The graph itself is never modified.
func Overlay(g *Graph, snapshot map[string][]lockstore.LockRecord) View {
	direct := make(map[string]*LockAnnotation)
	for fp, recs := range snapshot {
		if len(recs) == 0 {
			continue
		}
		rec := pickRecord(recs)
		direct[fp] = &LockAnnotation{
			Holder:   rec.HolderID,
			Mode:     string(rec.Mode),
			LockType: LockDirect,
			Message:  rec.Message,
		}
	}

	neighbor := make(map[string]*LockAnnotation)
	for fp, ann := range direct {
		for _, n := range g.Neighbors(fp) {
			if _, locked := direct[n]; locked {
				continue
			}
			if _, seen := neighbor[n]; seen {
				continue
			}
			neighbor[n] = &LockAnnotation{
				Holder:   ann.Holder,
				Mode:     ann.Mode,
				LockType: LockNeighbor,
				Message:  ann.Message,
			}
		}
	}

	files := g.Files()
	// Locked files outside the graph still appear in the view.
	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[f] = struct{}{}
	}
	for fp := range direct {
		if _, ok := known[fp]; !ok {
			files = append(files, fp)
		}
	}
	sort.Strings(files)

	nodes := make([]Node, 0, len(files))
	for _, f := range files {
		n := Node{Path: f}
		if ann, ok := direct[f]; ok {
			n.Lock = ann
		} else if ann, ok := neighbor[f]; ok {
			n.Lock = ann
		}
		nodes = append(nodes, n)
	}
	return View{Nodes: nodes, Edges: g.Edges()}
}

// pickRecord chooses the record shown when several holders read the same
// file: a writer always wins, otherwise the earliest-expiring reader.
func pickRecord(recs []lockstore.LockRecord) lockstore.LockRecord {
	best := recs[0]
	for _, r := range recs[1:] {
		if r.Mode == lockstore.ModeWriting && best.Mode != lockstore.ModeWriting {
			best = r
			continue
		}
		if r.Mode == best.Mode && r.ExpiresAt.Before(best.ExpiresAt) {
			best = r
		}
	}
	return best
}
