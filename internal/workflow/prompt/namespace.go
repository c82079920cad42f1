package prompt

import (
	"embed"
	"io/fs"
	"os"
	"strings"
)

//go:embed templates
var templatesFS embed.FS

// NewFS 返回模板文件系统：配置了目录时使用磁盘目录，否则使用内置模板
func NewFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(templatesFS, "templates")
}

// NamespaceStore 通过模板目录下是否存在同名文件夹判断命名空间是否存在
type NamespaceStore struct {
	fsys fs.FS
}

// NewNamespaceStore 创建命名空间查询
func NewNamespaceStore(fsys fs.FS) *NamespaceStore {
	return &NamespaceStore{fsys: fsys}
}

// Exists 命名空间 ID 对应目录是否存在
func (s *NamespaceStore) Exists(id string) bool {
	if id == "" || id == "." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return false
	}
	info, err := fs.Stat(s.fsys, id)
	return err == nil && info.IsDir()
}
