// Package source fetches raw hierarchy records from the institution's REST
// backend.
//
// A [Selector] names a backend endpoint and the record shape it returns.
// [Client.Fetch] performs the GET with authentication, a fresh X-Request-ID
// and retries on transient failures; the bytes it returns are handed
// unchanged to [hierarchy.Ingest].
//
// The backend itself is a collaborator, not part of this module: the client
// only assumes it answers JSON arrays of course or professor records.
package source
