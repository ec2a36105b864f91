package board

import (
	"fmt"
	"strings"
)

// renderLocked serializes the board from player's perspective:
//
//	ROWSxCOLS
//	one line per cell in row-major order:
//	  none          the cell's pair was matched and removed
//	  down          face-down card
//	  up LABEL      face-up card controlled by nobody or another player
//	  my LABEL      face-up card controlled by the requesting player
func (b *Board) renderLocked(player string) string {
	controlled := make(map[Pos]bool)
	if p, ok := b.players[player]; ok {
		if p.first != nil {
			controlled[*p.first] = true
		}
		if p.second != nil {
			controlled[*p.second] = true
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d", b.rows, b.cols)
	for r := 0; r < b.rows; r++ {
		for col := 0; col < b.cols; col++ {
			pos := Pos{Row: r, Col: col}
			c := b.cellAt(pos)
			sb.WriteByte('\n')
			switch {
			case c.gone:
				sb.WriteString("none")
			case !c.faceUp:
				sb.WriteString("down")
			case controlled[pos]:
				sb.WriteString("my ")
				sb.WriteString(c.card.Label)
			default:
				sb.WriteString("up ")
				sb.WriteString(c.card.Label)
			}
		}
	}
	return sb.String()
}

func (b *Board) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := 0
	for i := range b.cells {
		if !b.cells[i].gone {
			remaining++
		}
	}
	return fmt.Sprintf("Board(%dx%d, %d cards)", b.rows, b.cols, remaining)
}
