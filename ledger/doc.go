// Package ledger provides the typed adapter over the credential registry
// contract deployed on an EVM-compatible chain.
//
// The package implements the interfaces.Ledger interface. Writes are signed with
// the caller's session signer and return a pending receipt; a write takes effect
// only once AwaitCommit observes it mined. Reads always go to the chain.
//
// Key features include:
//
// - Student registration and unique id lookup
// - Document metadata submission and retrieval
// - Endorser authorization and document endorsements
// - Mapping of contract reverts to the shared error kinds
//
// # Contract Interface
//
// The contract exposes the following calls:
//
//	registerStudent(string name, string uniqueID)
//	uploadDocument(string contentAddress, string docType, uint256 weightage)
//	endorseDocument(address student, uint256 docIndex)
//	addEndorser(address endorser)
//	isStudentRegistered(address) returns (uint8)
//	studentByID(string) returns (address)
//	getStudentDocuments(address) returns (Document[])
//	getEndorsements(address, uint256) returns (address[])
//	students(address) returns (string, string, address, bool)
//	endorsers(address) returns (bool)
//
// studentByID returns the zero address for unbound ids, which the client reports
// as interfaces.ErrNotFound.
//
// # Usage
//
//	client, err := ethclient.Dial(rpcAddr)
//	if err != nil {
//	    return err
//	}
//	l, err := ledger.NewEthLedgerClient(client, client, contractAddress, logger)
//	if err != nil {
//	    return err
//	}
//
//	receipt, err := l.SubmitRegistration(ctx, session, "Alice", uniqueID)
//	if err != nil {
//	    return err
//	}
//	if _, err := l.AwaitCommit(ctx, receipt); err != nil {
//	    return err
//	}
//
// # Testing
//
// MockLedgerClient is an in-memory ledger with the contract's checks. Submissions
// are queued and re-validated when committed, so conflicting writes resolve in
// commit order. MockLedger is a testify mock for injecting arbitrary failures.
package ledger
