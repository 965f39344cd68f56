package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FilesystemNotifier writes each notification as a JSON file holding the rendered
// body. Used in development instead of a mail relay.
type FilesystemNotifier struct {
	directory string
}

func NewFilesystemNotifier(config models.FilesystemNotifierConfiguration) (*FilesystemNotifier, error) {
	if err := os.MkdirAll(config.Directory, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create notification directory: %w", err)
	}
	return &FilesystemNotifier{directory: config.Directory}, nil
}

func (f *FilesystemNotifier) NotifyFromTemplate(to string, subject string, templateName string, data any) error {
	tpl, err := lookupTemplate(templateName)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err = tpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", templateName, err)
	}

	content, err := json.MarshalIndent(map[string]any{
		"to":            to,
		"subject":       subject,
		"template_name": templateName,
		"args":          data,
		"body":          body.String(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	path := filepath.Join(f.directory, fmt.Sprintf("%d-%s.json", time.Now().UnixNano(), uuid.NewString()[:8]))
	if err = os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write notification file: %w", err)
	}

	zap.L().Info("Notification written to filesystem",
		zap.String("path", path),
		zap.String("to", to),
		zap.String("template", templateName))
	return nil
}
