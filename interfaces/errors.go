package interfaces

import "errors"

var (
	// ErrValidation is returned when caller input is malformed. No side effect occurred.
	ErrValidation = errors.New("validation error")

	// ErrNotAuthorized is returned when the actor lacks the required role.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrAlreadyRegistered is returned when the address already has a student record.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrAlreadyEndorsed is returned when the endorser already attested the document.
	ErrAlreadyEndorsed = errors.New("already endorsed")

	// ErrDuplicateID is returned when a unique id is bound to a different address.
	ErrDuplicateID = errors.New("duplicate unique id")

	// ErrNotFound is returned on lookup misses, including the zero-address sentinel.
	ErrNotFound = errors.New("not found")

	// ErrNotRegistered is returned when an operation requires a registered student.
	ErrNotRegistered = errors.New("student not registered")

	// ErrInvalidIndex is returned when a document index is out of range.
	ErrInvalidIndex = errors.New("invalid document index")

	// ErrStorageFailed is returned by uploads when the content store write failed.
	ErrStorageFailed = errors.New("storage failed")

	// ErrLedgerWriteFailed is returned by uploads when the metadata write failed
	// after the content was stored.
	ErrLedgerWriteFailed = errors.New("ledger write failed")

	// ErrTxRejected is returned when the ledger rejected a transaction.
	ErrTxRejected = errors.New("transaction rejected")

	// ErrResolutionFailed is returned when a signed URL could not be issued.
	ErrResolutionFailed = errors.New("signed url resolution failed")

	// ErrPayloadTooLarge is returned when content exceeds the size ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrUnsupportedType is returned when a content type is not allow-listed.
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrStoreUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrStoreUnavailable = errors.New("storage backend unavailable")

	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrLedgerUnavailable is returned when a ledger read could not be completed.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrNoSigner is returned when a write is attempted with a session lacking a signer.
	ErrNoSigner = errors.New("no signer in session")
)

// ErrorKind names one entry of the error taxonomy.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindNotAuthorized     ErrorKind = "NotAuthorized"
	KindAlreadyRegistered ErrorKind = "AlreadyRegistered"
	KindAlreadyEndorsed   ErrorKind = "AlreadyEndorsed"
	KindDuplicateID       ErrorKind = "DuplicateId"
	KindNotFound          ErrorKind = "NotFound"
	KindNotRegistered     ErrorKind = "NotRegistered"
	KindInvalidIndex      ErrorKind = "InvalidIndex"
	KindStorageFailed     ErrorKind = "StorageFailed"
	KindLedgerWriteFailed ErrorKind = "LedgerWriteFailed"
	KindTxRejected        ErrorKind = "TxRejected"
	KindResolutionFailed  ErrorKind = "ResolutionFailed"
	KindPayloadTooLarge   ErrorKind = "PayloadTooLarge"
	KindUnsupportedType   ErrorKind = "UnsupportedType"
	KindStoreUnavailable  ErrorKind = "StoreUnavailable"
	KindLedgerUnavailable ErrorKind = "LedgerUnavailable"
	KindInternal          ErrorKind = "Internal"
)

// kindOrder is checked top to bottom. Operation-level failures come before their
// causes so an upload reports StorageFailed or LedgerWriteFailed and a URL
// issuance reports ResolutionFailed. Ledger rejections report the specific
// conflict rather than the generic TxRejected.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrStorageFailed, KindStorageFailed},
	{ErrLedgerWriteFailed, KindLedgerWriteFailed},
	{ErrResolutionFailed, KindResolutionFailed},
	{ErrValidation, KindValidation},
	{ErrNotAuthorized, KindNotAuthorized},
	{ErrNoSigner, KindNotAuthorized},
	{ErrAlreadyRegistered, KindAlreadyRegistered},
	{ErrAlreadyEndorsed, KindAlreadyEndorsed},
	{ErrDuplicateID, KindDuplicateID},
	{ErrInvalidIndex, KindInvalidIndex},
	{ErrNotRegistered, KindNotRegistered},
	{ErrNotFound, KindNotFound},
	{ErrContentNotFound, KindNotFound},
	{ErrPayloadTooLarge, KindPayloadTooLarge},
	{ErrUnsupportedType, KindUnsupportedType},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{ErrTxRejected, KindTxRejected},
	{ErrLedgerUnavailable, KindLedgerUnavailable},
}

// KindOf reduces err to one named error kind. Unknown errors are Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ErrorForKind returns the sentinel error reported as kind, or nil for Internal
// and unknown kinds.
func ErrorForKind(kind ErrorKind) error {
	for _, k := range kindOrder {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}
