// db/db.go
// 封装 BadgerDB 的管理器：后台写队列批量落库，读路径直读
package db

import (
	"strings"
	"sync"
	"time"

	"vaultd/config"
	"vaultd/logs"

	"github.com/dgraph-io/badger/v2"
)

// WriteTask 写队列里的一条任务
type WriteTask struct {
	Key   string
	Value string
	Del   bool
}

type flushRequest struct {
	done chan error
}

// Manager 封装 BadgerDB 的管理器
type Manager struct {
	Db *badger.DB
	mu sync.RWMutex

	// 队列通道，批量写的 goroutine 用它来取写请求
	writeQueueChan chan WriteTask
	// 强制刷盘通道
	forceFlushChan chan flushRequest
	// 用于通知写队列 goroutine 停止
	stopChan chan struct{}
	wg       sync.WaitGroup

	// 控制"写多少/多长时间"就落库
	maxBatchSize  int           // 累计多少条就写一次
	flushInterval time.Duration // 间隔多久强制写一次

	cfg *config.Config
}

// NewManager 打开数据库并启动写队列
func NewManager(cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	opts := badger.DefaultOptions(cfg.DB.Path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	mgr := &Manager{
		Db:             db,
		writeQueueChan: make(chan WriteTask, cfg.DB.WriteQueueSize),
		forceFlushChan: make(chan flushRequest),
		stopChan:       make(chan struct{}),
		maxBatchSize:   cfg.DB.MaxBatchSize,
		flushInterval:  cfg.DB.FlushInterval,
		cfg:            cfg,
	}

	mgr.wg.Add(1)
	go mgr.runWriteQueue()

	logs.Info("[DB] badger opened at %s", cfg.DB.Path)
	return mgr, nil
}

// runWriteQueue 后台写队列：攒批量或到时间就落库
func (mgr *Manager) runWriteQueue() {
	defer mgr.wg.Done()

	batch := make([]WriteTask, 0, mgr.maxBatchSize)
	ticker := time.NewTicker(mgr.flushInterval)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := mgr.Db.Update(func(txn *badger.Txn) error {
			for _, task := range batch {
				if task.Del {
					if err := txn.Delete([]byte(task.Key)); err != nil {
						return err
					}
					continue
				}
				if err := txn.Set([]byte(task.Key), []byte(task.Value)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			logs.Error("[DB] flush batch failed: %v", err)
		}
		batch = batch[:0]
		return err
	}

	for {
		select {
		case task := <-mgr.writeQueueChan:
			batch = append(batch, task)
			if len(batch) >= mgr.maxBatchSize {
				_ = flush()
			}
		case <-ticker.C:
			_ = flush()
		case req := <-mgr.forceFlushChan:
			// 先排空队列里已经排进来的任务
			for {
				select {
				case task := <-mgr.writeQueueChan:
					batch = append(batch, task)
					continue
				default:
				}
				break
			}
			req.done <- flush()
		case <-mgr.stopChan:
			// 退出前把剩余任务落库
			for {
				select {
				case task := <-mgr.writeQueueChan:
					batch = append(batch, task)
					continue
				default:
				}
				break
			}
			_ = flush()
			return
		}
	}
}

// EnqueueSet 排队写入
func (mgr *Manager) EnqueueSet(key, value string) {
	mgr.writeQueueChan <- WriteTask{Key: key, Value: value}
}

// EnqueueDel 排队删除
func (mgr *Manager) EnqueueDel(key string) {
	mgr.writeQueueChan <- WriteTask{Key: key, Del: true}
}

// ForceFlush 强制把队列里的任务落库，阻塞到完成
func (mgr *Manager) ForceFlush() error {
	req := flushRequest{done: make(chan error, 1)}
	mgr.forceFlushChan <- req
	return <-req.done
}

// Get 读取 key，不存在返回 (nil, nil)
func (mgr *Manager) Get(key string) ([]byte, error) {
	var result []byte
	err := mgr.Db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Exists 判断 key 是否存在
func (mgr *Manager) Exists(key string) bool {
	err := mgr.Db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	return err == nil
}

// Scan 前缀扫描，返回所有以 prefix 开头的键值对
func (mgr *Manager) Scan(prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := mgr.Db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close 停止写队列并关闭数据库
func (mgr *Manager) Close() error {
	close(mgr.stopChan)
	mgr.wg.Wait()
	return mgr.Db.Close()
}
