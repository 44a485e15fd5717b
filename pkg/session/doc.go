// Package session implements the handshake and chunk exchange between a
// cipher client and server.
//
// Session flow:
//
//  1. The client sends an Identity record carrying its role token.
//  2. The server reads it, replies with its own token and validates. A token
//     that does not name the paired role rejects the session.
//  3. Per round the client sends Data, waits for any record as an ack, sends
//     Key and waits for Result.
//  4. The client ends the session with an empty Stop record. Either side may
//     instead send a Stop carrying an abort reason before giving up.
//
// Termination is recognised by record type only, so no data chunk can be
// mistaken for it.
package session
