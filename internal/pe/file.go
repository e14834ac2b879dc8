package pe

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// File is an image decoded from a memory-mapped file on disk.
type File struct {
	*Image

	path string
	size int64
	data mmap.MMap
}

// Open maps path read-only and decodes it. The decoded Image does not alias
// the mapping, so it stays valid after Close.
func Open(path string, opts ...Option) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "打开PE文件失败")
	}
	defer func() { _ = fh.Close() }()

	stat, err := fh.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "获取文件信息失败")
	}

	f := &File{path: path, size: stat.Size()}
	if f.size > 0 {
		if f.data, err = mmap.Map(fh, mmap.RDONLY, 0); err != nil {
			return nil, errors.Wrap(err, "映射PE文件失败")
		}
	}

	img, err := Parse(f.data, opts...)
	if err != nil {
		_ = f.Close()
		return nil, errors.WithMessagef(err, "解析 %s 失败", path)
	}
	f.Image = img
	return f, nil
}

// Close unmaps the file.
func (f *File) Close() error {
	if f.data == nil {
		return nil
	}
	err := f.data.Unmap()
	f.data = nil
	return err
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Raw returns the mapped bytes. The slice is invalid after Close.
func (f *File) Raw() []byte {
	return f.data
}
