// Package ass implements the authenticated request layer of a client for
// Aptoma Smooth Storage.
//
// A Credential holds an account's base URL, name and API key. From it the
// package derives the three authenticated request headers, resolves service
// endpoints relative to the base URL and produces deterministic signed URLs:
//
//	cred, err := ass.NewCredential("https://storage.example.com", "acme", "secret")
//	signer := ass.NewSigner(cred)
//	link, err := signer.SignURL("https://storage.example.com/users/acme/images/42.jpg")
//	// https://storage.example.com/users/acme/images/42.jpg?accessToken=<hex hmac>
//
// Responses decode either into typed records (FileRecord, ImageRecord) with
// DecodeRecord, or into an untyped Value tree with DecodeValue when the schema
// is not known ahead of time.
//
// Failures are *Error values whose Kind can be matched with errors.Is against
// the Err* sentinels or read with KindOf. Signer.Verify is the exception and
// returns ErrMissingSignature or ErrInvalidSignature.
//
// All functions are pure apart from LoadCredential and SaveCredential, and are
// safe for concurrent use. The HTTP operations built on this layer live in
// package client.
package ass
