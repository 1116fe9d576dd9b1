/*
Package api defines the HTTP surface of the credential registry: route paths,
request and response types, and the server configuration.

The API is read-only. Writes are signed by the student's or endorser's wallet
and go to the ledger directly (see cmd/registry_client); the server never holds
keys.

# Routes

	GET /api/public/students/{address}
	    Student profile with documents and endorsement counts.
	    404 NotRegistered when the address has no student record.

	GET /api/public/certs/{unique_id}
	    Documents of the student registered under unique_id, each with a
	    time-limited retrieval URL. A document whose URL could not be issued
	    has an empty url; the listing itself still succeeds.

	GET /api/public/students/{address}/documents/{index}/endorsements?quorum=N
	    Endorsers of one document and its status against quorum N.

	GET /api/public/content/{content_address}?expires=...&signature=...
	    Stored document bytes, for URLs signed by this server.

	GET /api/admin/orphans
	    Stored content whose ledger write failed. Requires
	    "Authorization: Bearer <admin token>"; not served when the server has
	    no admin token.

Errors are returned as {"error": "<Kind>", "message": "..."}.

The clients subpackage is a Go client for these routes.
*/
package api
