// Package storage, istemci tarafı durumun (sepet, oturum, kuponlar, tercihler) saklandığı
// kalıcı anahtar/değer katmanıdır.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// Backend, ham string değerleri saklayan depolama arayüzü.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ErrUnavailable, depolama devre dışı olduğunda döner.
var ErrUnavailable = errors.New("storage unavailable")

// FileBackend, tüm anahtarları tek bir JSON dosyasında tutar.
// Her yazma işleminde dosyanın tamamı yeniden yazılır.
type FileBackend struct {
	mu       sync.RWMutex
	data     map[string]string
	filePath string
}

// NewFileBackend, dosyayı yükler. Dosya yoksa, boşsa ya da bozuksa boş bir depo ile başlar;
// bozuk dosya ilk yazmada üzerine yazılır.
func NewFileBackend(filePath string) (*FileBackend, error) {
	fb := &FileBackend{
		data:     map[string]string{},
		filePath: filePath,
	}
	if err := fb.loadData(); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			fb.data = map[string]string{}
			return fb, nil
		}
		return nil, err
	}
	return fb, nil
}

func (fb *FileBackend) loadData() error {
	fileData, err := os.ReadFile(fb.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(fileData) == 0 {
		return nil
	}
	data := map[string]string{}
	if err := json.Unmarshal(fileData, &data); err != nil {
		return err
	}
	fb.data = data
	return nil
}

func (fb *FileBackend) saveData() error {
	data, err := json.MarshalIndent(fb.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fb.filePath, data, 0o644)
}

// Get, anahtarın değerini döndürür.
func (fb *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	v, ok := fb.data[key]
	return v, ok, nil
}

// Set, değeri yazar ve dosyayı günceller. Yazma başarısız olursa bellekteki değer geri alınır.
func (fb *FileBackend) Set(_ context.Context, key, value string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	old, existed := fb.data[key]
	fb.data[key] = value
	if err := fb.saveData(); err != nil {
		if existed {
			fb.data[key] = old
		} else {
			delete(fb.data, key)
		}
		return err
	}
	return nil
}

// Delete, anahtarı siler.
func (fb *FileBackend) Delete(_ context.Context, key string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	old, existed := fb.data[key]
	if !existed {
		return nil
	}
	delete(fb.data, key)
	if err := fb.saveData(); err != nil {
		fb.data[key] = old
		return err
	}
	return nil
}

// MemoryBackend, süreç ömrü boyunca bellekte tutar.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: map[string]string{}}
}

func (mb *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	v, ok := mb.data[key]
	return v, ok, nil
}

func (mb *MemoryBackend) Set(_ context.Context, key, value string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.data[key] = value
	return nil
}

func (mb *MemoryBackend) Delete(_ context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	delete(mb.data, key)
	return nil
}
