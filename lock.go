package markerbed

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

// fileTokens holds one serialization token per absolute dataset path. Every
// Store opened on the same file shares the token, so read-modify-write cycles
// on that file never interleave inside this process.
var fileTokens sync.Map // absolute path -> *semaphore.Weighted

// fileToken returns the token for path, creating it on first use.
func fileToken(path string) *semaphore.Weighted {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if tok, ok := fileTokens.Load(abs); ok {
		return tok.(*semaphore.Weighted)
	}
	tok, _ := fileTokens.LoadOrStore(abs, semaphore.NewWeighted(1))
	return tok.(*semaphore.Weighted)
}
