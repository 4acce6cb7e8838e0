package model

import (
	"crypto/rand"
	"math/big"
	"path/filepath"
	"strings"
)

const (
	taskIDLength   = 8
	taskIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxTaskIDLen   = 64
)

// Kind tells the transform engine which pipeline to run.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var videoExtensions = map[string]struct{}{
	".mp4": {},
	".avi": {},
	".mov": {},
	".mkv": {},
}

// KindFromFilename classifies a source file by its extension.
func KindFromFilename(name string) Kind {
	if _, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return KindVideo
	}
	return KindImage
}

// Task is one accepted unit of work.
type Task struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`   // sanitized source filename
	InputPath string `json:"input_path"` // path of the uploaded file
	Kind      Kind   `json:"kind"`
}

// NewTaskID returns a random 8-character alphanumeric token.
func NewTaskID() string {
	b := make([]byte, taskIDLength)
	limit := big.NewInt(int64(len(taskIDAlphabet)))

	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("model: crypto/rand unavailable: " + err.Error())
		}
		b[i] = taskIDAlphabet[n.Int64()]
	}

	return string(b)
}

// ValidTaskID reports whether id is safe to use as a key and a file name.
func ValidTaskID(id string) bool {
	if id == "" || len(id) > maxTaskIDLen {
		return false
	}

	for _, r := range id {
		if !strings.ContainsRune(taskIDAlphabet, r) {
			return false
		}
	}

	return true
}

// OutputName returns the processed file name for a task of the given kind.
func OutputName(id string, kind Kind) string {
	if kind == KindVideo {
		return id + ".mp4"
	}
	return id + "_unique.png"
}

// OutputNames lists every processed file name a task may have produced.
func OutputNames(id string) []string {
	return []string{OutputName(id, KindVideo), OutputName(id, KindImage)}
}
