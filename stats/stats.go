package stats

import (
	"sync"
	"time"
)

// Stats 服务运行统计
type Stats struct {
	statsLock     sync.RWMutex
	apiCallCounts map[string]uint64
	txCounts      map[string]uint64 // 按交易类型统计执行次数
	startTime     time.Time
}

func NewStats() *Stats {
	return &Stats{
		apiCallCounts: make(map[string]uint64),
		txCounts:      make(map[string]uint64),
		startTime:     time.Now(),
	}
}

// RecordAPICall 记录API调用
func (h *Stats) RecordAPICall(apiName string) {
	h.statsLock.Lock()
	defer h.statsLock.Unlock()

	if h.apiCallCounts == nil {
		h.apiCallCounts = make(map[string]uint64)
	}
	h.apiCallCounts[apiName]++
}

// RecordTx 记录一笔交易执行
func (h *Stats) RecordTx(kind string) {
	h.statsLock.Lock()
	defer h.statsLock.Unlock()

	if h.txCounts == nil {
		h.txCounts = make(map[string]uint64)
	}
	h.txCounts[kind]++
}

// GetAPICallStats 获取API调用统计
func (h *Stats) GetAPICallStats() map[string]uint64 {
	h.statsLock.RLock()
	defer h.statsLock.RUnlock()

	stats := make(map[string]uint64)
	for api, count := range h.apiCallCounts {
		stats[api] = count
	}
	return stats
}

// GetTxStats 获取交易执行统计
func (h *Stats) GetTxStats() map[string]uint64 {
	h.statsLock.RLock()
	defer h.statsLock.RUnlock()

	stats := make(map[string]uint64)
	for kind, count := range h.txCounts {
		stats[kind] = count
	}
	return stats
}

// Uptime 服务运行时长
func (h *Stats) Uptime() time.Duration {
	return time.Since(h.startTime)
}
