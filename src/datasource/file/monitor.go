// monitor.go
package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据源文件的变化。会话数据不会因此重新加载，只通知调用方。
type FileMonitor struct {
	watcher *fsnotify.Watcher
	tracked map[string]struct{}
	lastMod map[string]time.Time
	mu      sync.Mutex
}

// NewFileMonitor 监控给定文件所在的目录，只回调这些文件的事件
func NewFileMonitor(paths []string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &FileMonitor{
		watcher: watcher,
		tracked: make(map[string]struct{}),
		lastMod: make(map[string]time.Time),
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		m.tracked[abs] = struct{}{}
		if info, err := os.Stat(abs); err == nil {
			m.lastMod[abs] = info.ModTime()
		}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return m, nil
}

// Watch 阻塞处理事件直到Close，handler在新的goroutine中执行
func (m *FileMonitor) Watch(handler func(path string, op fsnotify.Op)) error {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if m.changed(event) {
				go handler(event.Name, event.Op)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) changed(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if _, ok := m.tracked[name]; !ok {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(m.lastMod, name)
		return true
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		info, err := os.Stat(name)
		if err != nil {
			return false
		}
		// 同一次保存会触发多个Write事件
		if last, ok := m.lastMod[name]; ok && !info.ModTime().After(last) && event.Has(fsnotify.Write) {
			return false
		}
		m.lastMod[name] = info.ModTime()
		return true
	}
	return false
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
