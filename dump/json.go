package dump

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/relex/gotils/logger"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/ndstream/receiver/receiver"
)

// PrintSnapshotFileAsJSON decodes a file of msgpack-encoded
// receiver.Snapshot records -- one per connection that was captured --
// and prints each as a single line of JSON.
func PrintSnapshotFileAsJSON(path string, writer io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := msgpack.NewDecoder(f)
	count := 0
	for {
		var snap receiver.Snapshot
		if err := decoder.Decode(&snap); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("corrupted snapshot record #%d in %s: %w", count, path, err)
		}
		if err := printSnapshotAsJSON(snap, writer); err != nil {
			return err
		}
		count++
	}
	logger.Infof("dumped %d snapshot(s) from %s", count, path)
	return nil
}

func printSnapshotAsJSON(snap receiver.Snapshot, writer io.Writer) error {
	jsonBin, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot as JSON: %w", err)
	}
	if _, err := writer.Write(jsonBin); err != nil {
		return fmt.Errorf("failed to print JSON: %w", err)
	}
	_, err = writer.Write([]byte("\n"))
	return err
}
