// Package cli provides the MailProof command-line client.
//
// Local commands work directly on a key directory:
//
//	keygen  -identity ID                 create (or load) the identity's keypair
//	pubkey  -identity ID [-base64]       print the stored public key
//	sign    -identity ID [-annotation A] issue and sign a proof token
//	verify  -identity ID | -pubkey FILE  check a signature
//	token   -identity ID [-ttl 24h]      mint an access token
//
// Remote commands talk to the HTTP API at Config.ServerURL:
//
//	verify -remote ...                   verify on the server
//	send   -to a@x,b@y -subject S        sign and send a message
//
// Run returns the process exit code: 0 on success (or a verified signature),
// 1 for a negative result, 2 for usage or runtime errors.
package cli
