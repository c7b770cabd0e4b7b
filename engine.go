package rstream

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kairstream/rstream/partition"
)

// UpdateStream identifies one phase's output: the set of files
// {base}.{p}.update_stream_{U} across every partition p.
type UpdateStream int

// Engine drives the mining-phase pipeline over one partitioned graph.
// An Engine owns its own update-stream counter and tuple-width bookkeeping;
// nothing here is process-global.
type Engine struct {
	cfg  Config
	log  *zap.SugaredLogger
	meta *partition.Meta
	part *partition.Partitioner

	mu          sync.Mutex
	updateCount int
	streamWidth map[UpdateStream]int // tuple width in bytes, per stream
}

// NewEngine validates cfg, loads the partition table at cfg.BasePath,
// and constructs an Engine ready to run phases. A nil logger defaults
// to a no-op logger.
func NewEngine(cfg Config, log *zap.SugaredLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	m, err := partition.LoadMeta(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if m.NumPartitions() != cfg.NumPartitions {
		return nil, &ConfigError{
			Field:  "NumPartitions",
			Reason: fmt.Sprintf("config says %d, meta file says %d", cfg.NumPartitions, m.NumPartitions()),
		}
	}

	return &Engine{
		cfg:         cfg,
		log:         log,
		meta:        m,
		part:        partition.NewPartitioner(m),
		streamWidth: make(map[UpdateStream]int),
	}, nil
}

func (e *Engine) nextUpdateStream(widthBytes int) UpdateStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := UpdateStream(e.updateCount)
	e.updateCount++
	e.streamWidth[id] = widthBytes
	return id
}

func (e *Engine) widthOf(u UpdateStream) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.streamWidth[u]
	if !ok {
		return 0, &IntegrityError{Reason: fmt.Sprintf("unknown update stream %d", int(u))}
	}
	return w, nil
}

func (e *Engine) edgePath(p int) string {
	return fmt.Sprintf("%s.%d", e.cfg.BasePath, p)
}

func (e *Engine) streamPath(u UpdateStream, p int) string {
	return fmt.Sprintf("%s.%d.update_stream_%d", e.cfg.BasePath, p, int(u))
}

func (e *Engine) vertexStart(p int) uint32 {
	return e.meta.Intervals[p].Lo
}

func (e *Engine) partitionSize(p int) int {
	return e.meta.Intervals[p].Len()
}
