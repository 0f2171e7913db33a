// Package trace exports each cycle's candidate set to parquet files for
// offline analysis.
package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/freeeve/soccer-proxy/internal/chain"
)

// DefaultFlushRows is the buffered row count that triggers a flush.
const DefaultFlushRows = 20000

// Row is one chain graph node.
type Row struct {
	Team           string  `parquet:"team,dict"`
	Unum           int32   `parquet:"unum"`
	Cycle          int32   `parquet:"cycle"`
	Index          int64   `parquet:"index"`
	Parent         int64   `parquet:"parent"`
	Depth          int32   `parquet:"depth"`
	Category       string  `parquet:"category,dict"`
	Description    string  `parquet:"description,dict"`
	TargetUnum     int32   `parquet:"target_unum"`
	TargetX        float32 `parquet:"target_x"`
	TargetY        float32 `parquet:"target_y"`
	FirstBallSpeed float32 `parquet:"first_ball_speed"`
	SpendTime      int32   `parquet:"spend_time"`
	BallHolder     int32   `parquet:"ball_holder"`
	BallX          float32 `parquet:"ball_x"`
	BallY          float32 `parquet:"ball_y"`
	Eval           float64 `parquet:"eval"`
	Committed      bool    `parquet:"committed"`
}

// Rows flattens g. Nodes on the committed path are flagged.
func Rows(team string, unum, cycle int, g *chain.Graph) []Row {
	if g == nil {
		return nil
	}
	committed := map[int]bool{}
	for _, n := range g.Committed() {
		committed[n.Index] = true
	}
	rows := make([]Row, 0, g.Len())
	for _, n := range g.Nodes() {
		a := n.Action
		rows = append(rows, Row{
			Team:           team,
			Unum:           int32(unum),
			Cycle:          int32(cycle),
			Index:          int64(n.Index),
			Parent:         int64(n.Parent),
			Depth:          int32(n.Depth),
			Category:       a.Category.String(),
			Description:    a.Description,
			TargetUnum:     int32(a.Target),
			TargetX:        float32(a.TargetPoint.X),
			TargetY:        float32(a.TargetPoint.Y),
			FirstBallSpeed: float32(a.FirstBallSpeed),
			SpendTime:      int32(n.State.SpendTime),
			BallHolder:     int32(n.State.BallHolder),
			BallX:          float32(n.State.BallPos.X),
			BallY:          float32(n.State.BallPos.Y),
			Eval:           n.Eval,
			Committed:      committed[n.Index],
		})
	}
	return rows
}

// Writer buffers rows and writes them out in batches. It is safe for
// concurrent use by several agents.
type Writer struct {
	dir       string
	flushRows int

	mu    sync.Mutex
	rows  []Row
	files []string
}

// NewWriter creates a Writer that writes batch files under dir.
func NewWriter(dir string, flushRows int) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("trace dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	if flushRows <= 0 {
		flushRows = DefaultFlushRows
	}
	return &Writer{dir: dir, flushRows: flushRows}, nil
}

// Add buffers one cycle's graph and flushes when the buffer is full.
func (w *Writer) Add(team string, unum, cycle int, g *chain.Graph) error {
	rows := Rows(team, unum, cycle, g)
	if len(rows) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, rows...)
	if len(w.rows) < w.flushRows {
		return nil
	}
	return w.flushLocked()
}

// Flush writes any buffered rows.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Files lists the batch files written so far.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.files...)
}

func (w *Writer) flushLocked() error {
	if len(w.rows) == 0 {
		return nil
	}
	name := fmt.Sprintf("candidates_%d.parquet", time.Now().UnixNano())
	final := filepath.Join(w.dir, name)
	tmp := final + ".tmp"
	_ = os.Remove(tmp)

	if err := parquet.WriteFile(tmp, w.rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "candidate_row_v1"),
	); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename parquet: %w", err)
	}
	w.files = append(w.files, final)
	w.rows = w.rows[:0]
	return nil
}

// ReadFile loads every row of a batch file.
func ReadFile(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
