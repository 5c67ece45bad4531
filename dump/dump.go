// Package dump provides functions to print captured Receiver State
// snapshots in human-readable JSON.
//
// For diagnostics only, no performance critical.
package dump

import (
	"bufio"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/relex/gotils/logger"
)

// PrintFileOrDirectories prints every snapshot record found in a list of
// files or directories of files (no nesting). ignoreErrors controls
// whether a per-file failure aborts the whole run or is just logged.
func PrintFileOrDirectories(pathList []string, ignoreErrors bool) error {
	bufWriter := bufio.NewWriterSize(os.Stdout, 1048576)
	defer bufWriter.Flush()

	for _, path := range pathList {
		stat, statErr := os.Stat(path)
		if statErr != nil {
			logger.Errorf("input '%s' is not accessible: %v", path, statErr)
			if !ignoreErrors {
				return statErr
			}
			continue
		}

		if stat.IsDir() {
			fileList, err := ioutil.ReadDir(path)
			if err != nil {
				return err
			}
			for _, file := range fileList {
				if err := PrintSnapshotFileAsJSON(filepath.Join(path, file.Name()), bufWriter); err != nil {
					logger.Warnf("failed to dump %s: %v", file.Name(), err)
					if !ignoreErrors {
						return err
					}
				}
			}
			continue
		}

		if err := PrintSnapshotFileAsJSON(path, bufWriter); err != nil {
			logger.Warnf("failed to dump %s: %v", path, err)
			if !ignoreErrors {
				return err
			}
		}
	}
	return nil
}
