// Package uploads implements the server half of the upload flow: issuing
// signed authorizations for direct uploads and receiving files in proxy
// mode.
package uploads

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/uploadvault/internal/common"
	"github.com/dmitrijs2005/uploadvault/internal/server/signer"
)

// AuthorizationRequest is what a client submits before a direct upload.
type AuthorizationRequest struct {
	FileName     string `json:"filename"`
	ResourceKind string `json:"resource_kind"`
}

// Authorization is the signed grant returned to the client. The client
// forwards the signature, timestamp and object key to the storage provider
// together with the file payload.
type Authorization struct {
	Signature          string `json:"signature"`
	Timestamp          int64  `json:"timestamp"`
	Namespace          string `json:"namespace"`
	ObjectKey          string `json:"object_key"`
	PublicCredentialID string `json:"public_credential_id"`
	ResourceKind       string `json:"resource_kind"`
}

// Issuer produces signed upload authorizations. Signing covers the
// namespace, the object key and a timestamp, so a grant cannot be replayed
// for a different destination.
type Issuer struct {
	namespace string
	apiKey    string
	apiSecret string

	now func() time.Time
}

// NewIssuer returns an Issuer for the given namespace and credentials.
func NewIssuer(namespace string, apiKey string, apiSecret string) *Issuer {
	return &Issuer{
		namespace: namespace,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		now:       time.Now,
	}
}

// Authorize validates the request and returns a signed authorization.
// The object key is the file name scoped under the deployment namespace.
func (i *Issuer) Authorize(req AuthorizationRequest) (Authorization, error) {
	if req.FileName == "" {
		return Authorization{}, common.NewValidationError("filename is required")
	}
	if req.ResourceKind != "image" && req.ResourceKind != "raw" {
		return Authorization{}, common.NewValidationError("resource_kind must be image or raw")
	}
	if i.apiSecret == "" || i.apiKey == "" {
		return Authorization{}, fmt.Errorf("%w: storage credentials are not configured", common.ErrorInternal)
	}

	ts := i.now().Unix()
	objectKey := fmt.Sprintf("%s/%s", i.namespace, req.FileName)

	sig := signer.Sign(map[string]string{
		"folder":    i.namespace,
		"public_id": objectKey,
		"timestamp": fmt.Sprintf("%d", ts),
	}, i.apiSecret)

	return Authorization{
		Signature:          sig,
		Timestamp:          ts,
		Namespace:          i.namespace,
		ObjectKey:          objectKey,
		PublicCredentialID: i.apiKey,
		ResourceKind:       req.ResourceKind,
	}, nil
}
