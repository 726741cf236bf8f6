// Package userserver exposes a users.Repository over the Model Context
// Protocol.
//
// A Server registers the following capabilities on an SDK server:
//
//   - tool "example": echoes its message back
//   - tool "create-user": appends a record built from the arguments
//   - tool "create-random-user": asks the client to sample a profile, then
//     appends it (full variant only)
//   - resource "users://all": every record as a JSON array
//   - resource template "users://{userId}/profile": one record
//   - resource "users://schema": the JSON Schema of a record
//   - prompt "generate-dummy-user": a request to invent a user with a given
//     name (full variant only)
//
// Identifiers are assigned by the repository as the record count plus one.
// Subscribed clients receive notifications/resources/updated for
// users://all after every append, and for external edits when a Watcher is
// running.
package userserver
