// Package myers implements a chunked Myers' O((M+N)D) edit-graph diff
// between a reference and a query sequence, producing insertion and
// deletion calls.
package myers

// point is a position in the edit graph: x indexes the reference, y
// indexes the query.
type point struct {
	x, y int
}

func (p point) isOrigin() bool { return p.x == 0 && p.y == 0 }
