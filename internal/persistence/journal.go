package persistence

import (
	"assembly-line/internal/types"
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// 日志记录类型
const (
	EntryOrder = "ORDER" // 订单下线
	EntryDay   = "DAY"   // 工作日结束
)

// Entry 代表生产日志中的一条记录
type Entry struct {
	Type     string        `json:"type"`
	Order    *types.Order  `json:"order,omitempty"`    // 下线订单的快照
	Day      time.Time     `json:"day,omitempty"`      // 结束的工作日
	Overtime time.Duration `json:"overtime,omitempty"` // 该工作日的加班
}

// Journal 是只追加的生产日志 (JSON lines)，记录下线订单和工作日边界
// 只用于统计和审计，不用于恢复引擎状态
type Journal struct {
	file *os.File   // 日志文件句柄
	mu   sync.Mutex // 互斥锁，保证文件写入的原子性
}

// NewJournal 创建或打开一个日志文件
func NewJournal(path string) (*Journal, error) {
	// O_APPEND: 追加写入, O_CREATE: 文件不存在则创建, O_RDWR: 读写模式
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &Journal{file: file}, nil
}

// AppendOrder 记录一个下线订单
func (j *Journal) AppendOrder(o types.Order) error {
	return j.append(Entry{Type: EntryOrder, Order: &o})
}

// AppendDay 记录一个工作日结束
func (j *Journal) AppendDay(day time.Time, overtime time.Duration) error {
	return j.append(Entry{Type: EntryDay, Day: day, Overtime: overtime})
}

func (j *Journal) append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	// 写入数据并在末尾添加换行符
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return err
	}
	// 确保数据被刷新到磁盘，防止数据丢失
	return j.file.Sync()
}

// Summary 重放整个日志文件得到统计汇总
func (j *Journal) Summary() (Summary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// 将文件指针移动到开头以进行读取
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return Summary{}, err
	}

	var s Summary
	scanner := bufio.NewScanner(j.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			// 忽略损坏的行
			continue
		}
		switch e.Type {
		case EntryOrder:
			if e.Order != nil {
				s.addOrder(*e.Order)
			}
		case EntryDay:
			s.closeDay(e.Day, e.Overtime)
		}
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, err
	}

	// 恢复文件指针到末尾，以便后续追加写入
	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// Close 关闭日志文件
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
