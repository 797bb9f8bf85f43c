package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// CalculateFileHash returns the hex xxh3-128 digest of a file's content.
func CalculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := xxh3.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	sum := hash.Sum128().Bytes()
	return fmt.Sprintf("%x", sum[:]), nil
}
