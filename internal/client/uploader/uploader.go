// Package uploader drives each selected file through its upload lifecycle:
// synchronous validation, authorization request, direct transfer to the
// storage provider with progress events, and terminal-state reporting into
// the registry.
package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/uploadvault/internal/client/registry"
	"github.com/dmitrijs2005/uploadvault/internal/logging"
)

// Authorization carries everything the storage provider needs to accept a
// direct upload without the provider secret ever reaching the client.
type Authorization struct {
	Signature          string `json:"signature"`
	Timestamp          int64  `json:"timestamp"`
	Namespace          string `json:"namespace"`
	ObjectKey          string `json:"object_key"`
	PublicCredentialID string `json:"public_credential_id"`
	ResourceKind       string `json:"resource_kind"`
}

// AuthorizationClient requests a fresh, single-use upload authorization from
// the issuer. Implemented by the api client; the caller's session credential
// rides along inside the implementation.
type AuthorizationClient interface {
	UploadAuthorization(ctx context.Context, filename, resourceKind string) (*Authorization, error)
}

// Orchestrator owns no upload state of its own: every observable fact about
// an upload lives in the registry.
type Orchestrator struct {
	reg            *registry.Registry
	auth           AuthorizationClient
	uploadEndpoint string
	httpClient     *http.Client
	logger         logging.Logger

	// newID is a seam for deterministic ids in tests.
	newID func() string
}

func NewOrchestrator(reg *registry.Registry, auth AuthorizationClient, uploadEndpoint string, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		reg:            reg,
		auth:           auth,
		uploadEndpoint: uploadEndpoint,
		httpClient:     &http.Client{},
		logger:         logger.With("module", "uploader"),
		newID:          uuid.NewString,
	}
}

// FileFromPath stats a local file and fills in its declared media type.
func FileFromPath(path string) (File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	return File{
		Path:        path,
		Name:        fi.Name(),
		Size:        fi.Size(),
		ContentType: ContentTypeFor(fi.Name()),
	}, nil
}

// UploadAll uploads the given files concurrently and independently: each file
// gets its own authorization request and its own transfer, and one file's
// failure never blocks the others. It returns the ids of the created records
// after every transfer reached a terminal state.
func (o *Orchestrator) UploadAll(ctx context.Context, files []File) []string {
	ids := make([]string, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		ids[i] = o.newID()
		wg.Add(1)
		go func(id string, f File) {
			defer wg.Done()
			o.uploadOne(ctx, id, f)
		}(ids[i], f)
	}
	wg.Wait()

	return ids
}

// Start behaves like UploadAll but returns immediately; completion is
// observable through the registry.
func (o *Orchestrator) Start(ctx context.Context, files []File) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = o.newID()
		go o.uploadOne(ctx, ids[i], f)
	}
	return ids
}

func (o *Orchestrator) uploadOne(ctx context.Context, id string, f File) {
	err := o.reg.Add(registry.Record{
		ID:       id,
		FileName: f.Name,
		FileSize: f.Size,
		Status:   registry.StatusPending,
	})
	if err != nil {
		o.logger.Error(ctx, "duplicate upload id", "id", id)
		return
	}

	if err := Validate(f); err != nil {
		o.fail(id, err.Error())
		return
	}

	o.setStatus(id, registry.StatusUploading)

	auth, err := o.auth.UploadAuthorization(ctx, f.Name, ResourceKindFor(f.Name))
	if err != nil {
		o.logger.Warn(ctx, "authorization request failed", "file", f.Name, "error", err)
		o.fail(id, err.Error())
		return
	}

	url, err := o.transfer(ctx, id, f, auth)
	if err != nil {
		o.logger.Warn(ctx, "transfer failed", "file", f.Name, "error", err)
		o.fail(id, err.Error())
		return
	}

	o.succeed(id, url)
	o.logger.Info(ctx, "upload complete", "file", f.Name, "url", url)
}

// transfer streams the file to the storage provider's upload endpoint as a
// multipart form carrying the authorization fields, reporting progress as
// the file bytes are consumed.
func (o *Orchestrator) transfer(ctx context.Context, id string, f File, auth *Authorization) (string, error) {
	src, err := os.Open(f.Path)
	if err != nil {
		return "", fmt.Errorf("cannot open file: %w", err)
	}
	defer src.Close()

	progress := newProgressReader(src, f.Size, func(percent int) {
		o.reg.Update(id, registry.Update{Progress: &percent})
	})

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		fields := map[string]string{
			"api_key":   auth.PublicCredentialID,
			"timestamp": strconv.FormatInt(auth.Timestamp, 10),
			"signature": auth.Signature,
			"public_id": auth.ObjectKey,
			"folder":    auth.Namespace,
		}
		for k, v := range fields {
			if err := mw.WriteField(k, v); err != nil {
				pw.CloseWithError(err)
				return
			}
		}

		part, err := mw.CreateFormFile("file", f.Name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, progress); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	url := fmt.Sprintf("%s/%s/upload", o.uploadEndpoint, auth.ResourceKind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("network error during upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("network error during upload: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s", providerErrorMessage(body, resp.StatusCode))
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unexpected response from storage provider")
	}

	return result.SecureURL, nil
}

// providerErrorMessage extracts a human-readable message from a provider
// error body, falling back to a generic message when unparsable.
func providerErrorMessage(body []byte, status int) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return fmt.Sprintf("upload failed with status %d", status)
}

func (o *Orchestrator) setStatus(id string, s registry.Status) {
	o.reg.Update(id, registry.Update{Status: &s})
}

func (o *Orchestrator) fail(id string, msg string) {
	s := registry.StatusError
	o.reg.Update(id, registry.Update{Status: &s, Error: &msg})
}

func (o *Orchestrator) succeed(id string, url string) {
	s := registry.StatusSuccess
	full := 100
	o.reg.Update(id, registry.Update{Status: &s, Progress: &full, URL: &url})
}
