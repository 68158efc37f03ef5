/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package cfg

// Dominators computes the immediate dominator of every block reachable
// from the entry, using the standard iterative data-flow algorithm
// (Cooper, Harvey & Kennedy) over a reverse-postorder traversal. The
// entry is its own idom; idom[i] is -1 for unreachable blocks.
func (g *Graph) Dominators() []int {
	order := g.reversePostorder()
	rpoIndex := make(map[int]int, len(order))
	for i, b := range order {
		rpoIndex[b] = i
	}

	idom := make([]int, len(g.Blocks))
	for i := range idom {
		idom[i] = -1
	}
	idom[g.Entry] = g.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == g.Entry {
				continue
			}
			newIdom := -1
			for _, p := range g.Blocks[b].Preds {
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if newIdom != -1 && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom []int, rpoIndex map[int]int, a, b int) int {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a), given a computed idom table.
func Dominates(idom []int, a, b int) bool {
	for b != a {
		if idom[b] == -1 {
			return false
		}
		if b == idom[b] {
			return false // reached entry without matching a
		}
		b = idom[b]
	}
	return true
}

func (g *Graph) reversePostorder() []int {
	visited := make([]bool, len(g.Blocks))
	var post []int
	var visit func(int)
	visit = func(b int) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, e := range g.Blocks[b].Succs {
			visit(e.To)
		}
		post = append(post, b)
	}
	visit(g.Entry)

	order := make([]int, len(post))
	for i, b := range post {
		order[len(post)-1-i] = b
	}
	return order
}

// Loop is one natural loop.
type Loop struct {
	Header int
	Latches []int
	Body    map[int]bool
}

// NaturalLoops finds every back edge (u -> v where v dominates u) and
// computes its natural loop body: every block that can reach u without
// going through v. Loops sharing a header are merged into a single Loop
// (their latches and bodies combined), since nested loops either share a
// header or are strictly nested.
func (g *Graph) NaturalLoops(idom []int) []Loop {
	byHeader := map[int]*Loop{}
	var headers []int

	for u := range g.Blocks {
		for _, e := range g.Blocks[u].Succs {
			v := e.To
			if !Dominates(idom, v, u) {
				continue
			}
			l, ok := byHeader[v]
			if !ok {
				l = &Loop{Header: v, Body: map[int]bool{v: true}}
				byHeader[v] = l
				headers = append(headers, v)
			}
			l.Latches = append(l.Latches, u)
			g.addLoopBody(l.Body, u, v)
		}
	}

	loops := make([]Loop, 0, len(headers))
	for _, h := range headers {
		loops = append(loops, *byHeader[h])
	}
	return loops
}

// addLoopBody walks predecessors backward from u, stopping at v, adding
// every block reached to body.
func (g *Graph) addLoopBody(body map[int]bool, u, v int) {
	if body[u] {
		return
	}
	body[u] = true
	if u == v {
		return
	}
	var stack []int
	stack = append(stack, u)
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		for _, p := range g.Blocks[cur].Preds {
			if p == v || body[p] {
				continue
			}
			body[p] = true
			stack = append(stack, p)
		}
	}
}

// postDominators computes the immediate post-dominator of every block,
// by running the same Cooper/Harvey/Kennedy algorithm Dominators uses but
// over the graph with every edge reversed and a virtual exit node added
// as the root, connected from every block with no real successor (a
// return, a throw, or an unreachable dead end). Structural recovery uses
// this to find the merge point of an if/else or the end of a try/switch:
// the nearest block every path out of the construct is guaranteed to
// reach. A block that cannot reach any exit (dead code, or a loop with no
// break) gets -1, which callers treat the same as "no merge found."
func postDominators(g *Graph) []int {
	n := len(g.Blocks)
	exit := n

	rsucc := make([][]int, n+1)
	rpred := make([][]int, n+1)
	addR := func(from, to int) {
		rsucc[from] = append(rsucc[from], to)
		rpred[to] = append(rpred[to], from)
	}
	for b := 0; b < n; b++ {
		for _, p := range g.Blocks[b].Preds {
			addR(b, p)
		}
		if len(g.Blocks[b].Succs) == 0 {
			addR(exit, b)
		}
	}

	visited := make([]bool, n+1)
	var post []int
	var visit func(int)
	visit = func(b int) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range rsucc[b] {
			visit(s)
		}
		post = append(post, b)
	}
	visit(exit)
	order := make([]int, len(post))
	for i, b := range post {
		order[len(post)-1-i] = b
	}
	rpoIndex := make(map[int]int, len(order))
	for i, b := range order {
		rpoIndex[b] = i
	}

	ipdom := make([]int, n+1)
	for i := range ipdom {
		ipdom[i] = -1
	}
	ipdom[exit] = exit

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == exit {
				continue
			}
			newIdom := -1
			for _, p := range rpred[b] {
				if ipdom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(ipdom, rpoIndex, newIdom, p)
			}
			if newIdom != -1 && ipdom[b] != newIdom {
				ipdom[b] = newIdom
				changed = true
			}
		}
	}

	result := make([]int, n)
	for b := 0; b < n; b++ {
		if b >= len(ipdom) || ipdom[b] == exit || ipdom[b] == -1 {
			result[b] = -1
			continue
		}
		result[b] = ipdom[b]
	}
	return result
}
