package logparse

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

const logSuffix = ".log"

var rotationPattern = regexp.MustCompile(`\d+\.log$`)

// IsRotationFile reports whether fileName is a rotated log of service,
// i.e. it has the shape "<service>.*.log" and ends in digits before ".log".
func IsRotationFile(service, fileName string) bool {
	prefix := service + "."
	if len(fileName) < len(prefix)+len(logSuffix) {
		return false
	}
	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, logSuffix) {
		return false
	}
	return rotationPattern.MatchString(fileName)
}

// CountRotations counts the rotation files of service inside dir.
// It must be called once per distinct service, never once per file.
func CountRotations(dir, service string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if !isRegularFile(dir, entry) {
			continue
		}
		if IsRotationFile(service, entry.Name()) {
			count++
		}
	}
	return count, nil
}
