package uploads

import (
	"bytes"

	"github.com/dmitrijs2005/uploadvault/internal/common"
)

// scanHeadSize is how much of the payload the scan policy inspects.
const scanHeadSize = 10 << 10

// ScanPolicy inspects the leading bytes of an upload before it is stored.
// Returning an error rejects the upload.
type ScanPolicy interface {
	Scan(head []byte) error
}

// eicarSignature is the standard antivirus test string. Payloads carrying
// it are rejected the same way a real scanner integration would.
var eicarSignature = []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)

// SignatureScanPolicy is the default policy. It flags payloads containing
// known test signatures; deployments with a real scanner provide their own
// ScanPolicy instead.
type SignatureScanPolicy struct{}

func (SignatureScanPolicy) Scan(head []byte) error {
	if bytes.Contains(head, eicarSignature) {
		return common.NewValidationError("File rejected by content scan")
	}
	return nil
}
