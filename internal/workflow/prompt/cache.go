package prompt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	apperrors "social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
)

// TemplateCache 持有模板 ID 到已编译模板的映射，按需加载。
// 由启动流程创建一次并注入到需要渲染提示词的组件。
type TemplateCache struct {
	fsys  fs.FS
	mu    sync.RWMutex
	cache map[TemplateID]Compiled
}

// NewTemplateCache 基于模板文件系统创建缓存
func NewTemplateCache(fsys fs.FS) *TemplateCache {
	return &TemplateCache{
		fsys:  fsys,
		cache: make(map[TemplateID]Compiled),
	}
}

// Get 返回已编译模板，未命中时从文件系统加载并编译
func (c *TemplateCache) Get(id TemplateID) (Compiled, error) {
	if c == nil {
		return nil, fmt.Errorf("template cache is nil")
	}

	c.mu.RLock()
	if tpl, ok := c.cache[id]; ok {
		c.mu.RUnlock()
		metrics.TemplateCacheEvents.WithLabelValues("hit").Inc()
		return tpl, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if tpl, ok := c.cache[id]; ok {
		return tpl, nil
	}
	metrics.TemplateCacheEvents.WithLabelValues("miss").Inc()

	source, err := fs.ReadFile(c.fsys, string(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(err, apperrors.CodeTemplateNotFound, fmt.Sprintf("Template %s not found", id))
		}
		return nil, fmt.Errorf("read template %s: %w", id, err)
	}

	tpl, err := compile(id, string(source))
	if err != nil {
		return nil, err
	}
	c.cache[id] = tpl
	return tpl, nil
}

// Render 取出模板并渲染
func (c *TemplateCache) Render(id TemplateID, values map[string]string) (string, error) {
	tpl, err := c.Get(id)
	if err != nil {
		return "", err
	}
	return tpl.Render(values)
}

// Invalidate 丢弃缓存的模板，下次 Get 时重新加载
func (c *TemplateCache) Invalidate(id TemplateID) {
	c.mu.Lock()
	delete(c.cache, id)
	c.mu.Unlock()
	metrics.TemplateCacheEvents.WithLabelValues("invalidate").Inc()
}

// Watch 监听模板目录 (含一级命名空间子目录)，文件变更时失效对应缓存。
// 阻塞直到 ctx 取消。
func (c *TemplateCache) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return fmt.Errorf("list template dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := watcher.Add(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("watch %s: %w", e.Name(), err)
		}
	}

	logger.Info(ctx, "watching prompt templates", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			id, ok := templateIDFor(dir, event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, statErr := fs.Stat(c.fsys, string(id)); statErr == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			logger.Info(ctx, "prompt template changed, reloading", "template", string(id), "op", event.Op.String())
			c.Invalidate(id)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "template watcher error", "error", werr.Error())
		}
	}
}

// templateIDFor 将磁盘路径转换为相对模板 ID
func templateIDFor(dir, name string) (TemplateID, bool) {
	rel, err := filepath.Rel(dir, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return TemplateID(filepath.ToSlash(rel)), true
}
