package activity

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"
)

const rebuildPageSize = 100

// rebuildIndex copies every document of the index at dir into a fresh index built with
// the current mapping, then swaps the directories.
func rebuildIndex(dir string) error {
	oldIndex, err := bleve.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open outdated index: %w", err)
	}

	newDir := dir + ".new"
	newIndex, err := bleve.New(newDir, buildIndexMapping())
	if err != nil {
		_ = oldIndex.Close()
		return fmt.Errorf("failed to create index: %w", err)
	}

	copied, err := copyEntries(oldIndex, newIndex)
	closeErr := oldIndex.Close()
	if newCloseErr := newIndex.Close(); closeErr == nil {
		closeErr = newCloseErr
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.RemoveAll(newDir)
		return err
	}

	zap.L().Info("Activity index rebuilt", zap.Int("documents", copied))

	oldDir := dir + ".old"
	if err = os.Rename(dir, oldDir); err != nil {
		return fmt.Errorf("failed to move outdated index: %w", err)
	}
	if err = os.Rename(newDir, dir); err != nil {
		return fmt.Errorf("failed to move rebuilt index: %w", err)
	}
	if err = os.RemoveAll(oldDir); err != nil {
		zap.L().Warn("Failed to remove outdated index", zap.Error(err))
	}
	return nil
}

func copyEntries(from bleve.Index, to bleve.Index) (int, error) {
	copied := 0
	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), rebuildPageSize, copied, false)
		req.Fields = []string{"*"}

		result, err := from.Search(req)
		if err != nil {
			return copied, fmt.Errorf("failed to read outdated index: %w", err)
		}
		if len(result.Hits) == 0 {
			return copied, nil
		}

		batch := to.NewBatch()
		for _, hit := range result.Hits {
			var entry FilesystemActivityEntry
			if raw, marshalErr := json.Marshal(hit.Fields); marshalErr == nil {
				_ = json.Unmarshal(raw, &entry)
			}
			if err = batch.Index(hit.ID, entry); err != nil {
				return copied, fmt.Errorf("failed to index document %s: %w", hit.ID, err)
			}
		}
		if err = to.Batch(batch); err != nil {
			return copied, fmt.Errorf("failed to write batch: %w", err)
		}

		copied += len(result.Hits)
		if len(result.Hits) < rebuildPageSize {
			return copied, nil
		}
	}
}
