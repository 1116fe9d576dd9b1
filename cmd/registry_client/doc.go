// Package main (cmd/registry_client) is the wallet-side command line client of
// the credential registry.
//
// Write commands (register, upload, endorse, add-endorser) sign transactions
// with an encrypted keystore file and wait for the ledger to commit them.
// Read commands (profile, certs, endorsements, orphans) query a running
// registry server.
//
// Example:
//
//	registry-client register --contract=$CONTRACT --keystore=./student.json \
//	    --passphrase=$PASS --name="Ada Lovelace"
//
//	registry-client upload --contract=$CONTRACT --keystore=./student.json \
//	    --passphrase=$PASS --storage=file:///srv/content \
//	    --file=transcript.pdf --doc-type=Transcript --weightage=7
//
//	registry-client certs --server=https://registry.example.org --unique-id=$ID
package main
