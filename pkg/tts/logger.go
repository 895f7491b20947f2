package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	logPath = "logs/tts.log"
	mu      sync.RWMutex
)

// SetLogPath configures the path for the TTS log file. An empty path disables it.
func SetLogPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	logPath = path
}

// Log appends one synthesis request and its outcome to the TTS log file.
func Log(provider, voice, payload string, err error) {
	mu.RLock()
	path := logPath
	mu.RUnlock()
	if path == "" {
		return
	}

	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, fileErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if fileErr != nil {
		return
	}
	defer f.Close()

	status := "OK"
	if err != nil {
		status = fmt.Sprintf("ERROR(%v)", err)
	}
	fmt.Fprintf(f, "[%s] [%s] VOICE: %s STATUS: %s\n%s\n--------------------------------------------------\n",
		time.Now().Format("2006-01-02 15:04:05"), provider, voice, status, payload)
}
