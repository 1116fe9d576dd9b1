// Package main (cmd/httpserver) runs the credential registry read API.
//
// The server reads students, documents and endorsements from the credential
// contract on every request, issues signed document URLs, serves signed
// content for backends without native presigning, and lists orphaned uploads.
// It never signs ledger transactions.
//
// Example:
//
//	credential-registry-server --rpc-addr=http://localhost:8545 \
//	    --contract=0x5FbDB2315678afecb367f032d93F642f64180aa3 \
//	    --storage=file:///var/lib/credential-registry/content \
//	    --storage=s3://documents/credentials/?region=eu-west-1 \
//	    --url-secret=$URL_SECRET --public-url=https://registry.example.org \
//	    --journal-dir=/var/lib/credential-registry/journal
package main
