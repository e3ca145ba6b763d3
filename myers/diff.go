package myers

import (
	"github.com/grailbio/base/log"
)

// Kind distinguishes the two call types the diff engine emits.
type Kind uint8

const (
	// Insertion marks query bytes with no reference counterpart.
	Insertion Kind = iota
	// Deletion marks reference bytes with no query counterpart.
	Deletion
)

func (k Kind) String() string {
	switch k {
	case Insertion:
		return "INS"
	case Deletion:
		return "DEL"
	default:
		return "UNKNOWN"
	}
}

// Call is one insertion or deletion the engine found, in reference
// coordinates. For an Insertion, Evidence is the inserted query bytes; for
// a Deletion, Evidence is the deleted reference bytes.
type Call struct {
	Kind     Kind
	RefStart int
	RefEnd   int
	Evidence []byte
}

// Config holds the engine's tuning knobs.
type Config struct {
	// ChunkSize bounds the forward/backward pass's working memory to
	// O(ChunkSize^2) by processing the inputs in windows.
	ChunkSize int
	// SnakeMinLen discards diagonal extensions shorter than this as noise
	// (end reverts to mid).
	SnakeMinLen int
	// MyersPenalty decays the bounded mismatch-error score on every match,
	// floored at 0.
	MyersPenalty float64
	// ErrorMaxScore is the ceiling the accumulated mismatch error score may
	// reach before a diagonal extension rolls back and stops.
	ErrorMaxScore float64
}

// Engine runs the chunked Myers diff per Config.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine configured by cfg. ChunkSize must be
// positive; it is a caller contract, not a recoverable condition, so a
// non-positive value is an invariant violation.
func NewEngine(cfg Config) *Engine {
	if cfg.ChunkSize <= 0 {
		log.Panicf("myers: NewEngine: ChunkSize must be positive, got %d", cfg.ChunkSize)
	}
	return &Engine{cfg: cfg}
}

// Diff walks ref and sv end to end in ChunkSize-sized windows, returning
// every insertion/deletion call found, in the order the forward pass
// produced them (front to back along the reference). Every chunk's
// backtrack runs with reachStart set, matching dna.cpp's FindDeltasChunk,
// whose backtrack loop (`cur.x_>0||cur.y_>0`) and flush-on-reach-start
// check both run unconditionally for every chunk with no per-chunk
// variation: only reachEnd varies chunk to chunk, based on whether that
// chunk is the input's last one.
func (e *Engine) Diff(ref, sv []byte) []Call {
	var calls []Call
	i, j := 0, 0
	for i < len(ref) || j < len(sv) {
		m := minInt(len(ref)-i, e.cfg.ChunkSize)
		n := minInt(len(sv)-j, e.cfg.ChunkSize)
		reachEnd := m < e.cfg.ChunkSize || n < e.cfg.ChunkSize
		next, chunkCalls := e.diffChunk(ref, i, m, sv, j, n, true, reachEnd)
		calls = append(calls, chunkCalls...)
		i += next.x
		j += next.y
	}
	return calls
}

// DiffSlice diffs ref[refStart:refStart+m] against the entirety of sv, with
// both reach_start and reach_end set: the from-segments path (spec §4.6),
// where the whole segment must be accounted for by the backtrack.
func (e *Engine) DiffSlice(ref []byte, refStart, m int, sv []byte) []Call {
	_, calls := e.diffChunk(ref, refStart, m, sv, 0, len(sv), true, true)
	return calls
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// matches reports whether two bases are considered equal for diagonal
// extension: identical, or either is the ambiguity code N.
func matches(a, b byte) bool {
	return a == b || a == 'N' || b == 'N'
}

// diffChunk runs one forward BFS pass over the edit graph for
// ref[refStart:refStart+m] vs sv[svStart:svStart+n], then backtracks the
// recorded history into a list of Calls. It returns the point the forward
// pass terminated at (the caller's next chunk offset).
func (e *Engine) diffChunk(ref []byte, refStart, m int, sv []byte, svStart, n int, reachStart, reachEnd bool) (point, []Call) {
	maxSteps := m + n
	padding := maxSteps
	endXs := make([]int, 2*maxSteps+1)
	var history [][]int
	solutionFound := false
	nextChunkStart := point{x: m, y: n}

	isFromUp := func(xs []int, k, step int) bool {
		if k == -step {
			return true
		}
		if k == step {
			return false
		}
		return xs[k+1+padding] > xs[k-1+padding]
	}

	for step := 0; step <= maxSteps; step++ {
		for k := -step; k <= step; k += 2 {
			fromUp := isFromUp(endXs, k, step)
			prevK := k + 1
			if !fromUp {
				prevK = k - 1
			}
			startX := endXs[prevK+padding]
			start := point{x: startX, y: startX - prevK}

			midX := start.x
			if !fromUp {
				midX = start.x + 1
			}
			mid := point{x: midX, y: midX - k}

			end := e.extendSnake(ref, refStart, m, sv, svStart, n, mid)
			endXs[k+padding] = end.x

			if reachEnd {
				if end.x >= m && end.y >= n {
					solutionFound = true
					nextChunkStart = end
				}
			} else if end.x >= m || end.y >= n {
				solutionFound = true
				nextChunkStart = end
			}
			if solutionFound {
				break
			}
		}
		snapshot := append([]int(nil), endXs...)
		history = append(history, snapshot)
		if solutionFound {
			break
		}
	}

	calls := e.backtrack(ref, refStart, sv, svStart, history, padding, nextChunkStart, reachStart, isFromUp)
	return nextChunkStart, calls
}

// extendSnake extends the diagonal from mid as far as the inputs agree,
// tolerating a bounded run of mismatches: each mismatch raises an error
// score that each subsequent match decays. If the score exceeds
// ErrorMaxScore, the extension rolls back the still-unresolved mismatch
// run and stops. A snake shorter than SnakeMinLen is discarded entirely
// (the extension reverts to mid).
func (e *Engine) extendSnake(ref []byte, refStart, m int, sv []byte, svStart, n int, mid point) point {
	end := mid
	snake := 0
	errorLen := 0
	errorScore := 0.0

	for end.x < m && end.y < n {
		refChar := ref[refStart+end.x]
		svChar := sv[svStart+end.y]
		ok := matches(refChar, svChar)
		end.x++
		end.y++
		snake++

		if ok {
			errorScore -= e.cfg.MyersPenalty
			if errorScore < 0 {
				errorScore = 0
			}
			if errorScore == 0 {
				errorLen = 0
			}
			continue
		}

		errorLen++
		errorScore++
		if errorScore > e.cfg.ErrorMaxScore {
			end.x -= errorLen
			end.y -= errorLen
			snake -= errorLen
			break
		}
	}

	if snake < e.cfg.SnakeMinLen {
		return mid
	}
	return end
}

// backtrack walks the forward pass's step history backward from
// nextChunkStart, emitting one Call each time the walk crosses a direction
// change or a non-trivial snake, per spec §4.5's backtrack pass.
func (e *Engine) backtrack(
	ref []byte, refStart int,
	sv []byte, svStart int,
	history [][]int, padding int,
	nextChunkStart point, reachStart bool,
	isFromUp func(xs []int, k, step int) bool,
) []Call {
	var calls []Call
	prevFromUp := -1 // -1: no direction recorded yet
	var prevEnd point

	insert := func(a, b point) Call {
		size := b.y - a.y
		return Call{
			Kind:     Insertion,
			RefStart: refStart + a.x,
			RefEnd:   refStart + a.x + size,
			Evidence: sv[svStart+a.y : svStart+a.y+size],
		}
	}
	del := func(a, b point) Call {
		size := b.x - a.x
		return Call{
			Kind:     Deletion,
			RefStart: refStart + a.x,
			RefEnd:   refStart + b.x,
			Evidence: ref[refStart+a.x : refStart+a.x+size],
		}
	}

	active := func(cur point) bool {
		if reachStart {
			return cur.x > 0 || cur.y > 0
		}
		return cur.x > 0 && cur.y > 0
	}

	cur := nextChunkStart
	for active(cur) {
		step := len(history) - 1
		endXs := history[step]
		history = history[:step]

		k := cur.x - cur.y
		endX := endXs[k+padding]
		end := point{x: endX, y: endX - k}

		fromUp := isFromUp(endXs, k, step)
		prevK := k + 1
		if !fromUp {
			prevK = k - 1
		}
		startX := endXs[prevK+padding]
		start := point{x: startX, y: startX - prevK}

		midX := start.x
		if !fromUp {
			midX = start.x + 1
		}
		mid := point{x: midX, y: midX - k}

		fromUpInt := 0
		if fromUp {
			fromUpInt = 1
		}
		if mid != end || fromUpInt != prevFromUp {
			if prevFromUp == 1 && end.y < prevEnd.y {
				calls = append(calls, insert(end, prevEnd))
			} else if prevFromUp == 0 && end.x < prevEnd.x {
				calls = append(calls, del(end, prevEnd))
			}
			prevEnd = mid
		}

		var reached bool
		if reachStart {
			reached = start.x <= 0 && start.y <= 0
		} else {
			reached = start.x <= 0 || start.y <= 0
		}
		if reached && !prevEnd.isOrigin() && !end.isOrigin() {
			if fromUp {
				calls = append(calls, insert(point{}, prevEnd))
			} else {
				calls = append(calls, del(point{}, prevEnd))
			}
		}

		prevFromUp = fromUpInt
		cur = start
	}

	// The walk above runs from nextChunkStart back to the origin, so calls
	// are discovered in right-to-left (descending reference position)
	// order; reverse them so callers see left-to-right reference order.
	for i, j := 0, len(calls)-1; i < j; i, j = i+1, j-1 {
		calls[i], calls[j] = calls[j], calls[i]
	}
	return calls
}
