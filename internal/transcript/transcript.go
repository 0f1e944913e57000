// Package transcript renders chain runs as plain-text exports.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
)

// Separator is the line written between two responses.
const Separator = "-----"

const (
	isoMillis     = "2006-01-02T15:04:05.000Z07:00"
	fileExtension = ".txt"
)

var fileNameReplacer = strings.NewReplacer(":", "-", ".", "-")

// Render joins the response of every step, one per step, with a separator
// line in between. There is no trailing newline.
func Render(steps []models.ChainStep) string {
	return strings.Join(lo.Map(steps, func(s models.ChainStep, _ int) string {
		return s.ResponseText
	}), "\n"+Separator+"\n")
}

// FileName is the UTC ISO-8601 timestamp with colons and periods replaced by
// hyphens, e.g. 2024-03-05T07-08-09-123Z.txt.
func FileName(t time.Time) string {
	return fileNameReplacer.Replace(t.UTC().Format(isoMillis)) + fileExtension
}

// Export is a rendered run ready to be offered as a download.
type Export struct {
	FileName string
	Content  string
}

// FromRun renders a completed run. Runs without steps have nothing to export.
func FromRun(run models.Run) (Export, error) {
	if len(run.Steps) == 0 {
		return Export{}, errors.NewError(errors.ErrNothingToExport, "no transcript to export", nil)
	}
	return Export{
		FileName: FileName(run.StartedAt),
		Content:  Render(run.Steps),
	}, nil
}

// Write stores the export of run in dir and returns the file path.
func Write(dir string, run models.Run) (string, error) {
	export, err := FromRun(run)
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.NewError(errors.ErrInternalServer, "failed to create output directory", err)
	}

	path := filepath.Join(dir, export.FileName)
	if err := os.WriteFile(path, []byte(export.Content), 0644); err != nil {
		return "", errors.NewError(errors.ErrInternalServer, fmt.Sprintf("failed to write %s", path), err)
	}
	return path, nil
}
