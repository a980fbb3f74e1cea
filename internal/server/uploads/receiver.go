package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/uploadvault/internal/common"
	"github.com/dmitrijs2005/uploadvault/internal/filex"
	"github.com/dmitrijs2005/uploadvault/internal/logging"
	"github.com/dmitrijs2005/uploadvault/internal/storage"
)

// MaxUploadSize is the per-file ceiling enforced in proxy mode (10 MiB).
const MaxUploadSize = 10 << 20

// contentTypeByExt maps the accepted extensions to their media type.
var contentTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".json": "application/json",
	".csv":  "text/csv",
}

// Receiver accepts proxied uploads: it validates the file, runs the scan
// policy over the leading bytes and hands the payload to the storage sink
// under a timestamped, sanitized key.
type Receiver struct {
	sink      storage.Provider
	namespace string
	scan      ScanPolicy
	logger    logging.Logger

	now func() time.Time
}

// NewReceiver wires a Receiver to its storage sink. A nil scan policy
// falls back to SignatureScanPolicy.
func NewReceiver(sink storage.Provider, namespace string, scan ScanPolicy, logger logging.Logger) *Receiver {
	if scan == nil {
		scan = SignatureScanPolicy{}
	}
	return &Receiver{
		sink:      sink,
		namespace: namespace,
		scan:      scan,
		logger:    logger.With("module", "uploads.receiver"),
		now:       time.Now,
	}
}

// Receive validates and stores one uploaded file. The declared size comes
// from the multipart header; the stream itself is additionally capped so an
// understated header cannot smuggle a larger payload.
func (r *Receiver) Receive(ctx context.Context, fileName string, size int64, body io.Reader) (storage.Resource, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := contentTypeByExt[ext]
	if !ok {
		return storage.Resource{}, common.NewValidationError("File type not supported. Please upload JPG, PNG, JSON, or CSV files.")
	}

	if size > MaxUploadSize {
		return storage.Resource{}, common.NewValidationError(fmt.Sprintf("File size exceeds 10MB limit. Your file is %.2fMB", float64(size)/1024/1024))
	}

	head := make([]byte, scanHeadSize)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return storage.Resource{}, fmt.Errorf("error reading upload: %w", err)
	}
	head = head[:n]

	if err := r.scan.Scan(head); err != nil {
		r.logger.Warn(ctx, "upload rejected by scan policy", "file", fileName)
		return storage.Resource{}, err
	}

	key := fmt.Sprintf("%s/%d_%s", r.namespace, r.now().UnixMilli(), filex.SanitizeFileName(fileName))

	payload := io.MultiReader(
		bytes.NewReader(head),
		io.LimitReader(body, MaxUploadSize-int64(len(head))),
	)

	res, err := r.sink.Put(ctx, key, contentType, payload, size)
	if err != nil {
		return storage.Resource{}, fmt.Errorf("%w: storing upload: %v", common.ErrorInternal, err)
	}

	r.logger.Info(ctx, "upload stored", "key", key, "bytes", res.Bytes)
	return res, nil
}
