package layout

import "context"

// Default spacing between boxes, in pixels.
const (
	DefaultRankSep = 50
	DefaultNodeSep = 30
)

// Layered places nodes in rows by longest path from the roots and centres
// each row horizontally. Nodes on a cycle stay in the row they reached
// before the cycle was entered.
type Layered struct {
	RankSep float64 // vertical gap between rows
	NodeSep float64 // horizontal gap within a row
}

func (Layered) Name() string { return "layered" }

func (l Layered) Layout(ctx context.Context, boxes []Box, links []Link) (map[string]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rankSep, nodeSep := l.RankSep, l.NodeSep
	if rankSep <= 0 {
		rankSep = DefaultRankSep
	}
	if nodeSep <= 0 {
		nodeSep = DefaultNodeSep
	}

	rows := assignRows(boxes, links)

	var (
		byRow     [][]Box
		rowHeight []float64
	)
	for _, b := range boxes {
		r := rows[b.ID]
		for len(byRow) <= r {
			byRow = append(byRow, nil)
			rowHeight = append(rowHeight, 0)
		}
		byRow[r] = append(byRow[r], b)
		rowHeight[r] = max(rowHeight[r], b.Height)
	}

	var maxWidth float64
	for _, row := range byRow {
		maxWidth = max(maxWidth, rowWidth(row, nodeSep))
	}

	out := make(map[string]Point, len(boxes))
	var top float64
	for r, row := range byRow {
		x := (maxWidth - rowWidth(row, nodeSep)) / 2
		for _, b := range row {
			out[b.ID] = Point{X: x + b.Width/2, Y: top + rowHeight[r]/2}
			x += b.Width + nodeSep
		}
		top += rowHeight[r] + rankSep
	}
	return out, nil
}

func rowWidth(row []Box, sep float64) float64 {
	if len(row) == 0 {
		return 0
	}
	w := sep * float64(len(row)-1)
	for _, b := range row {
		w += b.Width
	}
	return w
}

// assignRows is Kahn's algorithm with longest-path depths: every node sits
// one row below its deepest parent.
func assignRows(boxes []Box, links []Link) map[string]int {
	known := make(map[string]bool, len(boxes))
	for _, b := range boxes {
		known[b.ID] = true
	}
	children := make(map[string][]string)
	inDegree := make(map[string]int, len(boxes))
	for _, l := range links {
		if !known[l.Source] || !known[l.Target] {
			continue
		}
		children[l.Source] = append(children[l.Source], l.Target)
		inDegree[l.Target]++
	}

	rows := make(map[string]int, len(boxes))
	queue := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if inDegree[b.ID] == 0 {
			queue = append(queue, b.ID)
		}
	}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range children[curr] {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	return rows
}
